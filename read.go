package tap

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/internal/split"
	"github.com/prxssh/tap/pkg/flow"
	"github.com/prxssh/tap/pkg/props"
	"github.com/zeebo/errs"
)

// OpenForRead returns an iterator over the tuples stored at the tap's path.
//
// When input is nil the iterator acquires its own records through
// proc.Storer: a file is read as is, a directory is read as its visible
// children (names not starting with "_" or ".") in lexical order. The first
// file is opened before OpenForRead returns so acquisition failures surface
// here as ErrIO. When input is given the iterator decodes records from it and
// closes it when done.
//
// The caller must drain or Close the iterator.
func (t *Tap) OpenForRead(proc *flow.Process, input api.RecordReader) (*TupleEntryIterator, error) {
	if proc == nil {
		return nil, api.ErrInvalidConfiguration.New("tap: process can't be nil")
	}

	if input != nil {
		proc.Log().Debug("opened tap read", "path", t.path, "input", "caller")
		return newTupleEntryIterator(t, input, proc.Log()), nil
	}

	storer, err := storerOf(proc)
	if err != nil {
		return nil, err
	}

	files, err := t.sourceFiles(storer)
	if err != nil {
		return nil, err
	}

	src := newSourceReader(t.scheme, storer, proc.Properties, split.Plan(files, 0, false))
	if err := src.prime(); err != nil {
		return nil, err
	}

	proc.Log().Debug("opened tap read", "path", t.path, "files", len(files))
	return newTupleEntryIterator(t, src, proc.Log()), nil
}

// sourceFiles lists the files a read of the tap covers.
func (t *Tap) sourceFiles(storer api.Storer) ([]api.FileInfo, error) {
	info, err := storer.Stat(t.path)
	if err != nil {
		return nil, api.ErrIO.Wrap(fmt.Errorf("tap: stat %s: %w", t.path, err))
	}

	if !info.IsDir {
		return []api.FileInfo{info}, nil
	}

	children, err := storer.List(t.path)
	if err != nil {
		return nil, api.ErrIO.Wrap(fmt.Errorf("tap: list %s: %w", t.path, err))
	}

	files := make([]api.FileInfo, 0, len(children))
	for _, child := range children {
		if hidden(child) {
			continue
		}

		info, err := storer.Stat(child)
		if err != nil {
			return nil, api.ErrIO.Wrap(fmt.Errorf("tap: stat %s: %w", child, err))
		}
		if info.IsDir {
			continue
		}
		files = append(files, info)
	}

	return files, nil
}

func hidden(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

// sourceReader chains the records of several splits, opening each one only
// when the previous one is exhausted.
type sourceReader struct {
	scheme api.Scheme
	storer api.Storer
	props  props.Properties
	splits []split.Split

	next int
	file io.ReadCloser
	rr   api.RecordReader
}

func newSourceReader(s api.Scheme, storer api.Storer, p props.Properties, splits []split.Split) *sourceReader {
	return &sourceReader{
		scheme: s,
		storer: storer,
		props:  p,
		splits: splits,
	}
}

// prime opens the first split, if any.
func (r *sourceReader) prime() error {
	if r.next >= len(r.splits) {
		return nil
	}

	if err := r.open(r.splits[r.next]); err != nil {
		return err
	}
	r.next++
	return nil
}

func (r *sourceReader) Next() ([]byte, error) {
	for {
		if r.rr == nil {
			if r.next >= len(r.splits) {
				return nil, io.EOF
			}
			if err := r.prime(); err != nil {
				return nil, err
			}
		}

		raw, err := r.rr.Next()
		if errors.Is(err, io.EOF) {
			if err := r.closeCurrent(); err != nil {
				return nil, err
			}
			continue
		}

		return raw, err
	}
}

func (r *sourceReader) open(s split.Split) error {
	whole := s.Offset == 0 && s.Len < 0

	var splitScheme api.SplitScheme
	if !whole {
		var ok bool
		if splitScheme, ok = r.scheme.(api.SplitScheme); !ok {
			return api.ErrInvalidConfiguration.New("tap: scheme %s cannot read split %s", schemeName(r.scheme), s)
		}
	}

	file, err := r.storer.OpenRead(s.Path, s.Offset, -1)
	if err != nil {
		return api.ErrIO.Wrap(fmt.Errorf("tap: open %s: %w", s.Path, err))
	}

	var rr api.RecordReader
	if whole {
		rr, err = r.scheme.RecordReader(file, r.props)
	} else {
		rr, err = splitScheme.SplitRecordReader(file, s.Offset, s.Len, r.props)
	}
	if err != nil {
		file.Close()
		return classify(err, &api.ErrIO)
	}

	r.file = file
	r.rr = rr
	return nil
}

func (r *sourceReader) closeCurrent() error {
	if r.rr == nil {
		return nil
	}

	err := errs.Combine(r.rr.Close(), r.file.Close())
	r.rr = nil
	r.file = nil
	return classify(err, &api.ErrIO)
}

func (r *sourceReader) Close() error {
	r.next = len(r.splits)
	return r.closeCurrent()
}
