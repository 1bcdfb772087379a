package tap

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/flow"
	"github.com/prxssh/tap/pkg/hash"
	"github.com/prxssh/tap/pkg/tuple"
	"github.com/zeebo/errs"
)

// OpenForWrite starts a write session at the tap's path.
//
// The sink mode is consulted once, before anything is written:
// SinkModeKeep fails with ErrPreexistingOutput when the path exists,
// SinkModeReplace deletes what is there, and SinkModeAppend leaves it alone
// and names its parts with a unique session suffix.
//
// SinkModeReplace deletes the existing output before the part files are
// created. If creating a part then fails the old output is already gone and
// OpenForWrite returns ErrIO.
//
// The collector writes the parts path/part-00000 ... and must be closed to
// flush them.
func (t *Tap) OpenForWrite(proc *flow.Process) (*TupleEntryCollector, error) {
	storer, err := storerOf(proc)
	if err != nil {
		return nil, err
	}

	sink := t.scheme.SinkFields()
	if len(sink) == 0 {
		return nil, api.ErrInvalidConfiguration.New("tap: scheme %s declares no sink fields", schemeName(t.scheme))
	}

	exists, err := resourceExists(storer, t.path)
	if err != nil {
		return nil, err
	}

	var session string
	switch t.mode {
	case SinkModeKeep:
		if exists {
			return nil, api.ErrPreexistingOutput.New("tap: %s already exists, use replace or append sink mode", t.path)
		}
	case SinkModeReplace:
		if exists {
			proc.Log().Info("replacing existing tap output", "path", t.path)
			if err := storer.Delete(t.path); err != nil {
				return nil, api.ErrIO.Wrap(fmt.Errorf("tap: delete %s: %w", t.path, err))
			}
		}
	case SinkModeAppend:
		session = uuid.NewString()
	}

	c := &TupleEntryCollector{
		scheme: t.scheme,
		fields: sink,
		logger: proc.Log(),
		path:   t.path,
	}

	for i := 0; i < t.parts; i++ {
		name := fmt.Sprintf("part-%05d", i)
		if session != "" {
			name += "-" + session
		}

		p, err := openPart(proc, t.scheme, childPath(t.path, name))
		if err != nil {
			c.Close()
			return nil, err
		}
		c.parts = append(c.parts, p)
	}

	proc.Log().Debug(
		"opened tap write",
		"path", t.path,
		"sink-mode", t.mode,
		"parts", t.parts,
	)

	return c, nil
}

func childPath(dir, name string) string {
	return strings.TrimSuffix(dir, "/") + "/" + name
}

func resourceExists(storer api.Storer, path string) (bool, error) {
	_, err := storer.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	return false, api.ErrIO.Wrap(fmt.Errorf("tap: stat %s: %w", path, err))
}

// TupleEntryCollector accepts tuples for one write session. It is not safe
// for concurrent use.
type TupleEntryCollector struct {
	scheme api.Scheme
	fields tuple.Fields
	logger *slog.Logger
	path   string

	parts  []*part
	closed bool
	count  int64
}

type part struct {
	path string
	file io.WriteCloser
	rw   api.RecordWriter
}

func openPart(proc *flow.Process, s api.Scheme, path string) (*part, error) {
	file, err := proc.Storer.OpenWrite(path)
	if err != nil {
		return nil, api.ErrIO.Wrap(fmt.Errorf("tap: create %s: %w", path, err))
	}

	rw, err := s.RecordWriter(file, proc.Properties)
	if err != nil {
		file.Close()
		return nil, classify(err, &api.ErrIO)
	}

	return &part{path: path, file: file, rw: rw}, nil
}

// Fields returns the sink fields tuples must match.
func (c *TupleEntryCollector) Fields() tuple.Fields {
	return c.fields
}

// Add writes one tuple. It must hold exactly one value per sink field.
func (c *TupleEntryCollector) Add(t tuple.Tuple) error {
	if c.closed {
		return api.ErrIO.New("tap: collector for %s is closed", c.path)
	}

	if len(t) != len(c.fields) {
		return api.ErrEncode.New("tap: got %d values for %d sink fields", len(t), len(c.fields))
	}

	raw, err := c.scheme.Encode(t)
	if err != nil {
		return classify(err, &api.ErrEncode)
	}

	p := c.parts[0]
	if len(c.parts) > 1 {
		p = c.parts[hash.FNV(fmt.Sprint(t[0]), len(c.parts))]
	}

	if err := p.rw.Write(raw); err != nil {
		return classify(fmt.Errorf("tap: write %s: %w", p.path, err), &api.ErrIO)
	}

	c.count++
	return nil
}

// AddEntry writes the sink fields selected by name from e. e may carry extra
// fields in any order.
func (c *TupleEntryCollector) AddEntry(e tuple.Entry) error {
	values := make(tuple.Tuple, len(c.fields))
	for i, field := range c.fields {
		v, ok := e.Get(field.Name)
		if !ok {
			return api.ErrEncode.New("tap: entry has no sink field %q", field.Name)
		}
		values[i] = v
	}

	return c.Add(values)
}

// Close flushes and closes every part. It is safe to call more than once.
func (c *TupleEntryCollector) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var group errs.Group
	for _, p := range c.parts {
		group.Add(p.rw.Flush(), p.file.Close())
	}

	err := classify(group.Err(), &api.ErrIO)
	c.logger.Debug("closed tap write", "path", c.path, "records", c.count, "err", err)
	return err
}
