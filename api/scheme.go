package api

import (
	"io"

	"github.com/prxssh/tap/pkg/props"
	"github.com/prxssh/tap/pkg/tuple"
)

// Scheme translates between raw stored records and tuples.
//
// A tap never looks at record bytes itself. Framing (where one record ends and
// the next begins) and decoding (what the bytes of one record mean) are both
// delegated to the scheme bound to the tap.
//
// Stateless schemes may be shared by any number of taps and iterators.
// A scheme that keeps mutable state must not be shared.
type Scheme interface {
	// SourceFields is the shape of the tuples Decode produces.
	SourceFields() tuple.Fields

	// SinkFields is the shape of the tuples Encode accepts.
	SinkFields() tuple.Fields

	// RecordReader frames raw records out of r.
	RecordReader(r io.Reader, p props.Properties) (RecordReader, error)

	// RecordWriter frames raw records into w.
	RecordWriter(w io.Writer, p props.Properties) (RecordWriter, error)

	// Decode turns one raw record into a tuple matching SourceFields.
	Decode(raw []byte) (tuple.Tuple, error)

	// Encode turns a tuple matching SinkFields into one raw record.
	Encode(t tuple.Tuple) ([]byte, error)
}

// SplitScheme is a Scheme whose framing can start and stop inside a file, so a
// single file can be read as several independent byte ranges.
type SplitScheme interface {
	Scheme

	// SplitRecordReader frames the records that belong to the range starting
	// at offset and spanning length bytes. r is positioned at offset and runs
	// to the end of the file. A record belongs to the range its first byte
	// falls in.
	SplitRecordReader(r io.Reader, offset, length int64, p props.Properties) (RecordReader, error)
}

// RecordReader yields raw records one at a time.
type RecordReader interface {
	// Next returns the next raw record, or io.EOF once the input is exhausted.
	// The returned slice is only valid until the following call.
	Next() ([]byte, error)

	// Close releases the underlying input.
	Close() error
}

// RecordWriter accepts raw records one at a time.
type RecordWriter interface {
	// Write appends one raw record.
	Write(raw []byte) error

	// Flush pushes buffered records to the underlying writer. It does not
	// close it.
	Flush() error
}

// Describer is implemented by schemes that can be rebuilt from a
// SchemeDescriptor.
type Describer interface {
	Describe() SchemeDescriptor
}

// SchemeDescriptor is the serialisable description of a scheme.
type SchemeDescriptor struct {
	Type      string       `yaml:"type"`
	Fields    tuple.Fields `yaml:"fields"`
	Delimiter string       `yaml:"delimiter,omitempty"`
	Header    bool         `yaml:"header,omitempty"`
}
