package scheme

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/props"
	"github.com/prxssh/tap/pkg/tuple"
)

// Delimited stores one record per text line, values separated by a delimiter
// and quoted with CSV rules. Quoted values may not span lines.
type Delimited struct {
	fields tuple.Fields
	delim  rune
	header bool
}

var (
	_ api.SplitScheme = (*Delimited)(nil)
	_ api.Describer   = (*Delimited)(nil)
)

type DelimitedOption func(*Delimited)

// WithDelimiter sets the value separator. The default is a comma.
func WithDelimiter(r rune) DelimitedOption {
	return func(d *Delimited) {
		d.delim = r
	}
}

// WithHeader declares that files start with a line of field names. The line
// is skipped on read and written at the top of every part on write.
func WithHeader() DelimitedOption {
	return func(d *Delimited) {
		d.header = true
	}
}

func NewDelimited(fields tuple.Fields, opts ...DelimitedOption) *Delimited {
	d := &Delimited{fields: fields.Clone(), delim: ','}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Delimited) SourceFields() tuple.Fields { return d.fields }

func (d *Delimited) SinkFields() tuple.Fields { return d.fields }

func (d *Delimited) Validate() error {
	if d.delim == '"' || d.delim == '\r' || d.delim == '\n' || d.delim == 0xFFFD {
		return fmt.Errorf("delimited: invalid delimiter %q", d.delim)
	}
	return d.fields.Validate()
}

func (d *Delimited) Describe() api.SchemeDescriptor {
	desc := api.SchemeDescriptor{
		Type:   TypeDelimited,
		Fields: d.fields.Clone(),
		Header: d.header,
	}
	if d.delim != ',' {
		desc.Delimiter = string(d.delim)
	}
	return desc
}

func (d *Delimited) String() string {
	return TypeDelimited + d.fields.String()
}

func (d *Delimited) RecordReader(r io.Reader, p props.Properties) (api.RecordReader, error) {
	return d.SplitRecordReader(r, 0, -1, p)
}

func (d *Delimited) SplitRecordReader(r io.Reader, offset, length int64, p props.Properties) (api.RecordReader, error) {
	br, err := newBufferedReader(r, p)
	if err != nil {
		return nil, err
	}

	skipHeader, err := p.Bool(PropSkipHeader, false)
	if err != nil {
		return nil, api.ErrInvalidConfiguration.Wrap(err)
	}

	lr := &lineReader{br: br, pos: offset, end: -1}
	if length >= 0 {
		lr.end = offset + length
	}

	// Away from the start of the file the first line is either partial or
	// owned by the previous split. At the start it may be a header.
	if offset != 0 || d.header || skipHeader {
		lr.skipFirst = true
	}

	return lr, nil
}

func (d *Delimited) RecordWriter(w io.Writer, _ props.Properties) (api.RecordWriter, error) {
	dw := &delimitedWriter{bw: bufio.NewWriter(w)}
	if d.header {
		header, err := d.formatLine(d.fields.Names())
		if err != nil {
			return nil, api.ErrEncode.Wrap(err)
		}
		dw.header = header
	}
	return dw, nil
}

func (d *Delimited) Decode(raw []byte) (tuple.Tuple, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = d.delim
	cr.FieldsPerRecord = len(d.fields)

	record, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, api.ErrDecode.New("delimited: empty record")
	}
	if err != nil {
		return nil, api.ErrDecode.Wrap(fmt.Errorf("delimited: %w", err))
	}

	t := make(tuple.Tuple, len(record))
	for i, value := range record {
		t[i] = value
	}
	if err := d.fields.Coerce(t); err != nil {
		return nil, api.ErrDecode.Wrap(fmt.Errorf("delimited: %w", err))
	}
	return t, nil
}

func (d *Delimited) Encode(t tuple.Tuple) ([]byte, error) {
	values := slices.Clone(t)
	if err := d.fields.Coerce(values); err != nil {
		return nil, api.ErrEncode.Wrap(fmt.Errorf("delimited: %w", err))
	}

	record := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		s, err := tuple.TypeString.Coerce(v)
		if err != nil {
			return nil, api.ErrEncode.Wrap(fmt.Errorf("delimited: field %q: %w", d.fields[i].Name, err))
		}
		record[i] = s.(string)
	}

	raw, err := d.formatLine(record)
	if err != nil {
		return nil, api.ErrEncode.Wrap(fmt.Errorf("delimited: %w", err))
	}
	return raw, nil
}

func (d *Delimited) formatLine(record []string) ([]byte, error) {
	var buf bytes.Buffer

	cw := csv.NewWriter(&buf)
	cw.Comma = d.delim
	if err := cw.Write(record); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// lineReader frames newline-terminated records. With an end set it follows
// the split rule: read every line that starts at or before end, so a line
// crossing the boundary is finished here and skipped by the next split.
type lineReader struct {
	br        *bufio.Reader
	pos       int64
	end       int64
	skipFirst bool
	buf       []byte
}

func (l *lineReader) Next() ([]byte, error) {
	if l.skipFirst {
		l.skipFirst = false
		line, err := l.readLine()
		l.pos += int64(len(line))
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, api.ErrIO.Wrap(err)
		}
	}

	for {
		if l.end >= 0 && l.pos > l.end {
			return nil, io.EOF
		}

		line, err := l.readLine()
		l.pos += int64(len(line))
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, api.ErrIO.Wrap(err)
		}
		if len(line) == 0 {
			return nil, io.EOF
		}

		line = trimEOL(line)
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
}

func (l *lineReader) readLine() ([]byte, error) {
	l.buf = l.buf[:0]
	for {
		chunk, err := l.br.ReadSlice('\n')
		l.buf = append(l.buf, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return l.buf, err
	}
}

func (l *lineReader) Close() error {
	l.buf = nil
	return nil
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

type delimitedWriter struct {
	bw     *bufio.Writer
	header []byte
}

func (w *delimitedWriter) Write(raw []byte) error {
	if w.header != nil {
		if err := w.writeLine(w.header); err != nil {
			return err
		}
		w.header = nil
	}
	return w.writeLine(raw)
}

func (w *delimitedWriter) writeLine(line []byte) error {
	if _, err := w.bw.Write(line); err != nil {
		return api.ErrIO.Wrap(err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return api.ErrIO.Wrap(err)
	}
	return nil
}

func (w *delimitedWriter) Flush() error {
	if w.header != nil {
		if err := w.writeLine(w.header); err != nil {
			return err
		}
		w.header = nil
	}
	return api.ErrIO.Wrap(w.bw.Flush())
}
