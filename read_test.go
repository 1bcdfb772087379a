package tap

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/fs"
	"github.com/prxssh/tap/pkg/props"
	"github.com/prxssh/tap/pkg/scheme"
	"github.com/prxssh/tap/pkg/tuple"
	"github.com/stretchr/testify/require"
	"storj.io/common/testcontext"
)

var abc = []tuple.Tuple{{"1", "foo"}, {"2", "bar"}, {"3", "baz"}}

func TestOpenForReadFile(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)

	tp, err := New(scheme.NewFlat(tuple.NewFields("a", "b")), "/data/x")
	require.NoError(t, err)
	writeFile(t, mem, "/data/x", tp.Scheme(), abc...)

	it, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)
	require.True(t, tp.SourceFields().Equal(it.Fields()))

	for _, want := range abc {
		require.True(t, it.HasNext())
		e, err := it.Next()
		require.NoError(t, err)
		require.Equal(t, want, e.Tuple)
		require.True(t, tp.SourceFields().Equal(e.Fields))
	}

	require.False(t, it.HasNext())
	_, err = it.Next()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, it.Close())
}

func TestOpenForReadIndependentIterators(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)

	tp, err := New(scheme.NewFlat(tuple.NewFields("a", "b")), "/data/x")
	require.NoError(t, err)
	writeFile(t, mem, "/data/x", tp.Scheme(), abc...)

	first, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)
	second, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)

	// interleave the two consumers
	e, err := first.Next()
	require.NoError(t, err)
	require.Equal(t, abc[0], e.Tuple)

	require.Equal(t, abc, collect(t, second))
	require.Equal(t, abc[1:], collect(t, first))
}

func TestOpenForReadEmptyFile(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	writeRaw(t, mem, "/empty", nil)

	tp, err := New(scheme.NewFlat(tuple.NewFields("a")), "/empty")
	require.NoError(t, err)

	it, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)
	require.False(t, it.HasNext())
	require.NoError(t, it.Close())
}

func TestOpenForReadDirectory(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("a", "b"))

	writeFile(t, mem, "/out/part-00001", s, abc[2])
	writeFile(t, mem, "/out/part-00000", s, abc[0], abc[1])
	writeRaw(t, mem, "/out/_SUCCESS", []byte("garbage"))
	writeRaw(t, mem, "/out/.part-00000.crc", []byte("garbage"))
	writeRaw(t, mem, "/out/nested/part-00000", []byte("garbage"))

	tp, err := New(s, "/out")
	require.NoError(t, err)

	it, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)
	require.Equal(t, abc, collect(t, it))

	ids, err := tp.ChildIdentifiers(proc)
	require.NoError(t, err)
	require.Equal(t, []string{"/out/part-00000", "/out/part-00001"}, ids)
}

func TestOpenForReadLocal(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	proc := newTestProcess(fs.NewLocalStorage(), nil)

	path := filepath.Join(ctx.Dir("data"), "x.tsv")
	s := scheme.NewDelimited(tuple.Fields{{Name: "id", Type: tuple.TypeInt64}, {Name: "name"}},
		scheme.WithDelimiter('\t'), scheme.WithHeader())
	writeFile(t, fs.NewLocalStorage(), path, s, tuple.Tuple{int64(1), "foo"}, tuple.Tuple{int64(2), "bar"})

	tp, err := New(s, path)
	require.NoError(t, err)

	it, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)
	require.Equal(t, []tuple.Tuple{{int64(1), "foo"}, {int64(2), "bar"}}, collect(t, it))
}

func TestOpenForReadMissingPath(t *testing.T) {
	proc := newTestProcess(fs.NewMemoryStorage(), nil)

	tp, err := New(scheme.NewFlat(tuple.NewFields("a")), "/nope")
	require.NoError(t, err)

	it, err := tp.OpenForRead(proc, nil)
	require.Nil(t, it)
	require.True(t, api.ErrIO.Has(err), "got %v", err)

	_, err = tp.OpenForRead(nil, nil)
	require.True(t, api.ErrInvalidConfiguration.Has(err), "got %v", err)
}

func TestOpenForReadCorruptRecord(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("a", "b"))

	var buf bytes.Buffer
	rw, err := s.RecordWriter(&buf, nil)
	require.NoError(t, err)
	raw, err := s.Encode(abc[0])
	require.NoError(t, err)
	require.NoError(t, rw.Write(raw))
	require.NoError(t, rw.Write([]byte{0xc1}))
	raw, err = s.Encode(abc[1])
	require.NoError(t, err)
	require.NoError(t, rw.Write(raw))
	require.NoError(t, rw.Flush())
	writeRaw(t, mem, "/bad", buf.Bytes())

	tp, err := New(s, "/bad")
	require.NoError(t, err)

	it, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)

	e, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, abc[0], e.Tuple)

	require.True(t, it.HasNext())
	_, err = it.Next()
	require.True(t, api.ErrDecode.Has(err), "got %v", err)

	require.False(t, it.HasNext())
	_, err = it.Next()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, it.Close())
}

func TestOpenForReadTruncated(t *testing.T) {
	mem := fs.NewMemoryStorage()
	proc := newTestProcess(mem, nil)
	s := scheme.NewFlat(tuple.NewFields("a", "b"))

	var buf bytes.Buffer
	rw, err := s.RecordWriter(&buf, nil)
	require.NoError(t, err)
	raw, err := s.Encode(abc[0])
	require.NoError(t, err)
	require.NoError(t, rw.Write(raw))
	require.NoError(t, rw.Flush())
	writeRaw(t, mem, "/short", append(buf.Bytes(), 0x05, 0x01))

	tp, err := New(s, "/short")
	require.NoError(t, err)

	it, err := tp.OpenForRead(proc, nil)
	require.NoError(t, err)

	var errsSeen []error
	var got []tuple.Tuple
	for e, err := range it.All() {
		if err != nil {
			errsSeen = append(errsSeen, err)
			continue
		}
		got = append(got, e.Tuple)
	}

	require.Equal(t, abc[:1], got)
	require.Len(t, errsSeen, 1)
	require.True(t, api.ErrIO.Has(errsSeen[0]), "got %v", errsSeen[0])
	require.ErrorIs(t, errsSeen[0], io.ErrUnexpectedEOF)
}

type closeTracker struct {
	api.RecordReader
	closes int
}

func (c *closeTracker) Close() error {
	c.closes++
	return c.RecordReader.Close()
}

func TestOpenForReadCallerInput(t *testing.T) {
	s := scheme.NewDelimited(tuple.NewFields("a", "b"), scheme.WithDelimiter('|'))
	proc := newTestProcess(fs.NewMemoryStorage(), nil)

	tp, err := New(s, "/not/used")
	require.NoError(t, err)

	rr, err := s.RecordReader(bytes.NewReader([]byte("1|foo\n2|bar\n3|baz\n")), nil)
	require.NoError(t, err)
	input := &closeTracker{RecordReader: rr}

	it, err := tp.OpenForRead(proc, input)
	require.NoError(t, err)

	var got []tuple.Tuple
	for e, err := range it.All() {
		require.NoError(t, err)
		got = append(got, e.Tuple)
	}
	require.Equal(t, abc, got)
	require.Equal(t, 1, input.closes)

	require.NoError(t, it.Close())
	require.Equal(t, 1, input.closes)
}

func TestIteratorEarlyClose(t *testing.T) {
	s := scheme.NewFlat(tuple.NewFields("a", "b"))
	proc := newTestProcess(fs.NewMemoryStorage(), nil)

	var buf bytes.Buffer
	rw, err := s.RecordWriter(&buf, nil)
	require.NoError(t, err)
	for _, tup := range abc {
		raw, err := s.Encode(tup)
		require.NoError(t, err)
		require.NoError(t, rw.Write(raw))
	}
	require.NoError(t, rw.Flush())

	rr, err := s.RecordReader(&buf, nil)
	require.NoError(t, err)
	input := &closeTracker{RecordReader: rr}

	tp, err := New(s, "/x")
	require.NoError(t, err)
	it, err := tp.OpenForRead(proc, input)
	require.NoError(t, err)

	for e, err := range it.All() {
		require.NoError(t, err)
		require.Equal(t, abc[0], e.Tuple)
		break
	}
	require.Equal(t, 1, input.closes)

	require.False(t, it.HasNext())
	_, err = it.Next()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, it.Close())
	require.Equal(t, 1, input.closes)
}

func TestOpenForReadBadBufferSize(t *testing.T) {
	mem := fs.NewMemoryStorage()
	s := scheme.NewFlat(tuple.NewFields("a", "b"))
	writeFile(t, mem, "/data/x", s, abc...)

	tp, err := New(s, "/data/x")
	require.NoError(t, err)

	for _, size := range []string{"lots", "KiB", "x1"} {
		proc := newTestProcess(mem, props.Properties{scheme.PropReadBufferSize: size})
		it, err := tp.OpenForRead(proc, nil)
		require.Nil(t, it)
		require.True(t, api.ErrInvalidConfiguration.Has(err), "%q: got %v", size, err)
	}

	it, err := tp.OpenForRead(newTestProcess(mem, props.Properties{scheme.PropReadBufferSize: "1KiB"}), nil)
	require.NoError(t, err)
	require.Equal(t, abc, collect(t, it))
}
