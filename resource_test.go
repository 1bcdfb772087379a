package tap

import (
	"testing"
	"time"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/fs"
	"github.com/prxssh/tap/pkg/scheme"
	"github.com/prxssh/tap/pkg/tuple"
	"github.com/stretchr/testify/require"
)

func TestResourceOperations(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("a", "b"))

	tp, err := New(s, "/out", WithSinkParts(2))
	require.NoError(t, err)

	exists, err := tp.ResourceExists(proc)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = tp.Size(proc)
	require.True(t, api.ErrIO.Has(err), "got %v", err)

	before := time.Now().Add(-time.Second)
	c, err := tp.OpenForWrite(proc)
	require.NoError(t, err)
	write(t, c, abc...)
	writeRaw(t, mem, "/out/_SUCCESS", []byte("ignored"))

	exists, err = tp.ResourceExists(proc)
	require.NoError(t, err)
	require.True(t, exists)

	ids, err := tp.ChildIdentifiers(proc)
	require.NoError(t, err)
	require.Equal(t, []string{"/out/part-00000", "/out/part-00001"}, ids)

	var want int64
	for _, id := range ids {
		info, err := mem.Stat(id)
		require.NoError(t, err)
		want += info.Size
	}
	size, err := tp.Size(proc)
	require.NoError(t, err)
	require.Equal(t, want, size)
	require.Positive(t, size)

	modified, err := tp.ModifiedTime(proc)
	require.NoError(t, err)
	require.True(t, modified.After(before), "modified %v", modified)

	require.NoError(t, tp.DeleteResource(proc))
	exists, err = tp.ResourceExists(proc)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, tp.DeleteResource(proc), "deleting twice is fine")
}

func TestResourceSingleFile(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("a", "b"))
	writeFile(t, mem, "/data/x", s, abc...)

	tp, err := New(s, "/data/x")
	require.NoError(t, err)

	ids, err := tp.ChildIdentifiers(proc)
	require.NoError(t, err)
	require.Equal(t, []string{"/data/x"}, ids)

	info, err := mem.Stat("/data/x")
	require.NoError(t, err)

	size, err := tp.Size(proc)
	require.NoError(t, err)
	require.Equal(t, info.Size, size)

	modified, err := tp.ModifiedTime(proc)
	require.NoError(t, err)
	require.Equal(t, info.ModTime, modified)
}

func TestResourceNeedsStorer(t *testing.T) {
	tp, err := New(scheme.NewFlat(tuple.NewFields("a")), "/p")
	require.NoError(t, err)

	_, err = tp.ResourceExists(nil)
	require.True(t, api.ErrInvalidConfiguration.Has(err), "got %v", err)

	proc := newTestProcess(fs.NewMemoryStorage(), nil)
	proc.Storer = nil
	err = tp.DeleteResource(proc)
	require.True(t, api.ErrInvalidConfiguration.Has(err), "got %v", err)
}
