package tap

import (
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/tuple"
)

// TupleEntryIterator is a lazy, forward-only sequence of tuple entries. Each
// pull reads one raw record and decodes it through the tap's scheme.
//
// An iterator is driven by a single consumer and cannot be restarted. It
// releases its input when the sequence ends, when an error is returned, or
// when Close is called, whichever happens first.
type TupleEntryIterator struct {
	scheme api.Scheme
	fields tuple.Fields
	input  api.RecordReader
	logger *slog.Logger
	path   string

	entry   tuple.Entry
	err     error
	pending bool
	done    bool

	closed   bool
	closeErr error
	count    int64
}

func newTupleEntryIterator(t *Tap, input api.RecordReader, logger *slog.Logger) *TupleEntryIterator {
	return &TupleEntryIterator{
		scheme: t.scheme,
		fields: t.scheme.SourceFields(),
		input:  input,
		logger: logger,
		path:   t.path,
	}
}

// Fields returns the fields every entry carries.
func (it *TupleEntryIterator) Fields() tuple.Fields {
	return it.fields
}

// HasNext reports whether a call to Next will return an entry or an error.
// It may read one record ahead.
func (it *TupleEntryIterator) HasNext() bool {
	if it.pending {
		return true
	}
	if it.done {
		return false
	}

	it.advance()
	return it.pending
}

// Next returns the next entry. Once the sequence is exhausted it returns
// io.EOF. Any other error ends the sequence.
func (it *TupleEntryIterator) Next() (tuple.Entry, error) {
	if !it.HasNext() {
		return tuple.Entry{}, io.EOF
	}
	it.pending = false

	if it.err != nil {
		err := it.err
		it.err = nil
		it.done = true
		it.release()
		return tuple.Entry{}, err
	}

	entry := it.entry
	it.entry = tuple.Entry{}
	return entry, nil
}

// All ranges over the remaining entries. Iteration stops after the first
// error, which is yielded with an empty entry. The iterator is closed when
// the loop ends.
func (it *TupleEntryIterator) All() iter.Seq2[tuple.Entry, error] {
	return func(yield func(tuple.Entry, error) bool) {
		defer it.Close()

		for it.HasNext() {
			entry, err := it.Next()
			if !yield(entry, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the underlying input. It is safe to call at any point and
// more than once.
func (it *TupleEntryIterator) Close() error {
	it.done = true
	it.pending = false
	it.entry = tuple.Entry{}
	it.err = nil
	it.release()
	return it.closeErr
}

func (it *TupleEntryIterator) advance() {
	raw, err := it.input.Next()
	if errors.Is(err, io.EOF) {
		it.done = true
		it.release()
		return
	}
	if err != nil {
		it.fail(classify(err, &api.ErrIO))
		return
	}

	values, err := it.scheme.Decode(raw)
	if err != nil {
		it.fail(classify(err, &api.ErrDecode))
		return
	}
	if len(values) != len(it.fields) {
		it.fail(api.ErrDecode.New("tap: decoded %d values for %d source fields", len(values), len(it.fields)))
		return
	}

	it.entry = tuple.NewEntry(it.fields, values)
	it.pending = true
	it.count++
}

func (it *TupleEntryIterator) fail(err error) {
	it.err = err
	it.pending = true
}

func (it *TupleEntryIterator) release() {
	if it.closed {
		return
	}
	it.closed = true

	it.closeErr = classify(it.input.Close(), &api.ErrIO)
	it.logger.Debug("closed tap read", "path", it.path, "records", it.count, "err", it.closeErr)
}
