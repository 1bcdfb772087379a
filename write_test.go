package tap

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/fs"
	"github.com/prxssh/tap/pkg/hash"
	"github.com/prxssh/tap/pkg/scheme"
	"github.com/prxssh/tap/pkg/tuple"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, c *TupleEntryCollector, tuples ...tuple.Tuple) {
	t.Helper()

	for _, tup := range tuples {
		require.NoError(t, c.Add(tup))
	}
	require.NoError(t, c.Close())
}

func readBack(t *testing.T, tp *Tap, storer api.Storer) []tuple.Tuple {
	t.Helper()

	it, err := tp.OpenForRead(newTestProcess(storer, nil), nil)
	require.NoError(t, err)
	return collect(t, it)
}

// schemeWithoutSink declares only source fields.
type schemeWithoutSink struct {
	*scheme.Flat
}

func (schemeWithoutSink) SinkFields() tuple.Fields { return nil }

func TestOpenForWriteRoundTrip(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)

	tp, err := New(scheme.NewDelimited(tuple.NewFields("a", "b"), scheme.WithHeader()), "/out")
	require.NoError(t, err)

	c, err := tp.OpenForWrite(proc)
	require.NoError(t, err)
	require.True(t, tp.SinkFields().Equal(c.Fields()))
	write(t, c, abc...)

	require.Equal(t, abc, readBack(t, tp, mem))

	exists, err := tp.ResourceExists(proc)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestOpenForWriteKeep(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)

	tp, err := New(scheme.NewFlat(tuple.NewFields("a", "b")), "/out")
	require.NoError(t, err)

	c, err := tp.OpenForWrite(proc)
	require.NoError(t, err)
	write(t, c, abc[0])

	c, err = tp.OpenForWrite(proc)
	require.Nil(t, c)
	require.True(t, api.ErrPreexistingOutput.Has(err), "got %v", err)

	require.Equal(t, abc[:1], readBack(t, tp, mem), "existing output is untouched")
}

func TestOpenForWriteReplace(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("a", "b"))

	wide, err := New(s, "/out", WithSinkParts(4))
	require.NoError(t, err)
	c, err := wide.OpenForWrite(proc)
	require.NoError(t, err)
	write(t, c, abc...)

	tp, err := New(s, "/out", WithSinkMode(SinkModeReplace))
	require.NoError(t, err)
	c, err = tp.OpenForWrite(proc)
	require.NoError(t, err)
	write(t, c, tuple.Tuple{"9", "new"})

	require.Equal(t, []tuple.Tuple{{"9", "new"}}, readBack(t, tp, mem))

	ids, err := tp.ChildIdentifiers(proc)
	require.NoError(t, err)
	require.Equal(t, []string{"/out/part-00000"}, ids)
}

func TestOpenForWriteReplaceMissing(t *testing.T) {
	mem := fs.NewMemoryStorage()

	tp, err := NewReplace(scheme.NewFlat(tuple.NewFields("a", "b")), "/fresh", true)
	require.NoError(t, err)
	c, err := tp.OpenForWrite(newTestProcess(mem, nil))
	require.NoError(t, err)
	write(t, c, abc...)

	require.Equal(t, abc, readBack(t, tp, mem))
}

func TestOpenForWriteAppend(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("a", "b"))

	first, err := New(s, "/out")
	require.NoError(t, err)
	c, err := first.OpenForWrite(proc)
	require.NoError(t, err)
	write(t, c, abc[0])

	tp, err := New(s, "/out", WithSinkMode(SinkModeAppend))
	require.NoError(t, err)
	for _, tup := range abc[1:] {
		c, err := tp.OpenForWrite(proc)
		require.NoError(t, err)
		write(t, c, tup)
	}

	ids, err := tp.ChildIdentifiers(proc)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Equal(t, "/out/part-00000", ids[0])
	for _, id := range ids[1:] {
		require.True(t, strings.HasPrefix(id, "/out/part-00000-"), id)
	}

	got := readBack(t, tp, mem)
	require.Equal(t, abc[0], got[0])
	require.ElementsMatch(t, abc, got)
}

func TestOpenForWriteParts(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("key", "value"))

	tp, err := New(s, "/out", WithSinkParts(3))
	require.NoError(t, err)

	var tuples []tuple.Tuple
	for i := range 30 {
		tuples = append(tuples, tuple.Tuple{fmt.Sprintf("key-%d", i), fmt.Sprint(i)})
	}

	c, err := tp.OpenForWrite(proc)
	require.NoError(t, err)
	write(t, c, tuples...)

	ids, err := tp.ChildIdentifiers(proc)
	require.NoError(t, err)
	require.Equal(t, []string{"/out/part-00000", "/out/part-00001", "/out/part-00002"}, ids)

	for i, id := range ids {
		single, err := New(s, id)
		require.NoError(t, err)
		for _, tup := range readBack(t, single, mem) {
			require.Equal(t, i, hash.FNV(tup[0].(string), 3), "tuple %v in %s", tup, id)
		}
	}

	require.ElementsMatch(t, tuples, readBack(t, tp, mem))
}

func TestCollectorAddEntry(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)

	tp, err := New(scheme.NewFlat(tuple.Fields{{Name: "id", Type: tuple.TypeInt64}, {Name: "name"}}), "/out")
	require.NoError(t, err)

	c, err := tp.OpenForWrite(proc)
	require.NoError(t, err)

	wide := tuple.NewFields("name", "extra", "id")
	require.NoError(t, c.AddEntry(tuple.NewEntry(wide, tuple.Tuple{"foo", true, int64(7)})))

	err = c.AddEntry(tuple.NewEntry(tuple.NewFields("name"), tuple.Tuple{"bar"}))
	require.True(t, api.ErrEncode.Has(err), "got %v", err)
	require.NoError(t, c.Close())

	require.Equal(t, []tuple.Tuple{{int64(7), "foo"}}, readBack(t, tp, mem))
}

func TestCollectorRejects(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)

	tp, err := New(scheme.NewFlat(tuple.Fields{{Name: "id", Type: tuple.TypeInt64}, {Name: "name"}}), "/out")
	require.NoError(t, err)

	c, err := tp.OpenForWrite(proc)
	require.NoError(t, err)

	err = c.Add(tuple.Tuple{int64(1)})
	require.True(t, api.ErrEncode.Has(err), "got %v", err)

	err = c.Add(tuple.Tuple{"not a number", "x"})
	require.True(t, api.ErrEncode.Has(err), "got %v", err)

	require.NoError(t, c.Add(tuple.Tuple{int64(1), "ok"}))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err = c.Add(tuple.Tuple{int64(2), "late"})
	require.True(t, api.ErrIO.Has(err), "got %v", err)

	require.Equal(t, []tuple.Tuple{{int64(1), "ok"}}, readBack(t, tp, mem))
}

func TestOpenForWriteNoSinkFields(t *testing.T) {
	tp, err := New(schemeWithoutSink{scheme.NewFlat(tuple.NewFields("a"))}, "/out")
	require.NoError(t, err)

	_, err = tp.OpenForWrite(newTestProcess(fs.NewMemoryStorage(), nil))
	require.True(t, api.ErrInvalidConfiguration.Has(err), "got %v", err)

	_, err = tp.OpenForWrite(nil)
	require.True(t, api.ErrInvalidConfiguration.Has(err), "got %v", err)
}

// readOnlyStorer refuses every write.
type readOnlyStorer struct {
	*fs.Memory
}

func (readOnlyStorer) OpenWrite(string) (io.WriteCloser, error) {
	return nil, errors.New("read-only storage")
}

func TestOpenForWriteReplaceCreateFails(t *testing.T) {
	mem := fs.NewMemoryStorage()
	s := scheme.NewFlat(tuple.NewFields("a", "b"))
	writeFile(t, mem, "/out/part-00000", s, abc...)

	tp, err := New(s, "/out", WithSinkMode(SinkModeReplace), WithSinkParts(2))
	require.NoError(t, err)

	proc := newTestProcess(readOnlyStorer{mem}, nil)
	c, err := tp.OpenForWrite(proc)
	require.Nil(t, c)
	require.True(t, api.ErrIO.Has(err), "got %v", err)

	exists, err := tp.ResourceExists(proc)
	require.NoError(t, err)
	require.False(t, exists, "replace deletes before creating parts")
}

func TestOpenForWriteKeepCreateFails(t *testing.T) {
	mem := fs.NewMemoryStorage()

	tp, err := New(scheme.NewFlat(tuple.NewFields("a")), "/out")
	require.NoError(t, err)

	_, err = tp.OpenForWrite(newTestProcess(readOnlyStorer{mem}, nil))
	require.True(t, api.ErrIO.Has(err), "got %v", err)

	exists, err := tp.ResourceExists(newTestProcess(mem, nil))
	require.NoError(t, err)
	require.False(t, exists)
}
