package scheme

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/props"
	"github.com/prxssh/tap/pkg/tuple"
	"github.com/vmihailenco/msgpack/v5"
)

// maxFlatRecord bounds a single record so a corrupt length prefix cannot
// trigger a huge allocation.
const maxFlatRecord = 1 << 30

// Flat stores each record as a uvarint length followed by a msgpack array
// holding the tuple values. Source and sink fields are the same.
//
// Flat is the default whole-record scheme: taps built from a bare field list
// use it.
type Flat struct {
	fields tuple.Fields
}

var (
	_ api.Scheme    = (*Flat)(nil)
	_ api.Describer = (*Flat)(nil)
)

func NewFlat(fields tuple.Fields) *Flat {
	return &Flat{fields: fields.Clone()}
}

func (f *Flat) SourceFields() tuple.Fields { return f.fields }

func (f *Flat) SinkFields() tuple.Fields { return f.fields }

func (f *Flat) Validate() error {
	return f.fields.Validate()
}

func (f *Flat) Describe() api.SchemeDescriptor {
	return api.SchemeDescriptor{Type: TypeFlat, Fields: f.fields.Clone()}
}

func (f *Flat) String() string {
	return TypeFlat + f.fields.String()
}

func (f *Flat) RecordReader(r io.Reader, p props.Properties) (api.RecordReader, error) {
	br, err := newBufferedReader(r, p)
	if err != nil {
		return nil, err
	}
	return &flatReader{br: br}, nil
}

func (f *Flat) RecordWriter(w io.Writer, _ props.Properties) (api.RecordWriter, error) {
	return &flatWriter{bw: bufio.NewWriter(w)}, nil
}

func (f *Flat) Decode(raw []byte) (tuple.Tuple, error) {
	r := bytes.NewReader(raw)
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)

	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, api.ErrDecode.Wrap(fmt.Errorf("flat: %w", err))
	}
	if r.Len() > 0 {
		return nil, api.ErrDecode.New("flat: %d trailing bytes after record", r.Len())
	}

	t := tuple.Tuple(values)
	if err := f.fields.Coerce(t); err != nil {
		return nil, api.ErrDecode.Wrap(fmt.Errorf("flat: %w", err))
	}
	return t, nil
}

func (f *Flat) Encode(t tuple.Tuple) ([]byte, error) {
	values := slices.Clone(t)
	if err := f.fields.Coerce(values); err != nil {
		return nil, api.ErrEncode.Wrap(fmt.Errorf("flat: %w", err))
	}

	raw, err := msgpack.Marshal([]any(values))
	if err != nil {
		return nil, api.ErrEncode.Wrap(fmt.Errorf("flat: %w", err))
	}
	return raw, nil
}

type flatReader struct {
	br  *bufio.Reader
	buf []byte
}

func (r *flatReader) Next() ([]byte, error) {
	n, err := binary.ReadUvarint(r.br)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, api.ErrIO.Wrap(fmt.Errorf("flat: read record length: %w", err))
	}

	if n > maxFlatRecord {
		return nil, api.ErrIO.New("flat: record length %d exceeds limit", n)
	}

	if uint64(cap(r.buf)) < n {
		r.buf = make([]byte, n)
	}
	r.buf = r.buf[:n]

	if _, err := io.ReadFull(r.br, r.buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, api.ErrIO.Wrap(fmt.Errorf("flat: truncated record: %w", err))
	}

	return r.buf, nil
}

func (r *flatReader) Close() error {
	r.buf = nil
	return nil
}

type flatWriter struct {
	bw     *bufio.Writer
	prefix [binary.MaxVarintLen64]byte
}

func (w *flatWriter) Write(raw []byte) error {
	n := binary.PutUvarint(w.prefix[:], uint64(len(raw)))
	if _, err := w.bw.Write(w.prefix[:n]); err != nil {
		return api.ErrIO.Wrap(err)
	}
	if _, err := w.bw.Write(raw); err != nil {
		return api.ErrIO.Wrap(err)
	}
	return nil
}

func (w *flatWriter) Flush() error {
	return api.ErrIO.Wrap(w.bw.Flush())
}
