// Package tap binds a storage path, a record scheme and a sink mode into a
// handle that opens reads and writes.
//
// A Tap is immutable once built and may be shared by any number of
// goroutines. Each read it opens owns its own storage handles, so several
// iterators can run over the same tap at once.
package tap

import (
	"fmt"
	"reflect"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/scheme"
	"github.com/prxssh/tap/pkg/tuple"
)

// Tap identifies where records live (path), how they are laid out (scheme)
// and what writes do with existing data (sink mode).
type Tap struct {
	path   string
	scheme api.Scheme
	mode   SinkMode
	parts  int
}

// New builds a tap over path using s. Without options the sink mode is
// SinkModeKeep and writes produce one part file.
//
// All argument checks happen here: a nil scheme, an empty path, a scheme with
// no source fields or an invalid option fail with ErrInvalidConfiguration.
// New performs no I/O.
func New(s api.Scheme, path string, opts ...Option) (*Tap, error) {
	t := newTap(path)
	if err := t.bind(s, newConfig(opts...)); err != nil {
		return nil, err
	}

	return t, nil
}

// NewFromFields builds a tap whose records are laid out by the default
// whole-record scheme over fields.
//
// Deprecated: use New with scheme.NewFlat(fields).
func NewFromFields(fields tuple.Fields, path string, opts ...Option) (*Tap, error) {
	return New(scheme.NewFlat(fields), path, opts...)
}

// NewFromFieldsReplace is NewFromFields with the legacy replace flag.
//
// Deprecated: use New with scheme.NewFlat(fields) and WithSinkMode.
func NewFromFieldsReplace(fields tuple.Fields, path string, replace bool) (*Tap, error) {
	return NewFromFields(fields, path, WithSinkMode(ReplaceMode(replace)))
}

// NewReplace is New with the legacy replace flag.
//
// Deprecated: use New with WithSinkMode.
func NewReplace(s api.Scheme, path string, replace bool) (*Tap, error) {
	return New(s, path, WithSinkMode(ReplaceMode(replace)))
}

// newTap returns a tap that only knows its path. It is the starting point for
// rehydration and must have a scheme bound before it leaves the package.
func newTap(path string) *Tap {
	return &Tap{path: path}
}

func (t *Tap) bind(s api.Scheme, cfg *Config) error {
	if err := validate(s, t.path, cfg); err != nil {
		return err
	}

	t.scheme = s
	t.mode = cfg.SinkMode
	t.parts = cfg.SinkParts
	return nil
}

func validate(s api.Scheme, path string, cfg *Config) error {
	if isNil(s) {
		return api.ErrInvalidConfiguration.New("tap: scheme is required")
	}

	if path == "" {
		return api.ErrInvalidConfiguration.New("tap: path cannot be empty")
	}

	if len(s.SourceFields()) == 0 {
		return api.ErrInvalidConfiguration.New("tap: scheme %s declares no source fields", schemeName(s))
	}

	if err := s.SourceFields().Validate(); err != nil {
		return api.ErrInvalidConfiguration.Wrap(fmt.Errorf("tap: source fields: %w", err))
	}

	if v, ok := s.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return api.ErrInvalidConfiguration.Wrap(fmt.Errorf("tap: scheme %s: %w", schemeName(s), err))
		}
	}

	if !cfg.SinkMode.valid() {
		return api.ErrInvalidConfiguration.New("tap: invalid sink mode %d", uint8(cfg.SinkMode))
	}

	if cfg.SinkParts < 1 {
		return api.ErrInvalidConfiguration.New("tap: SinkParts must be greater than 0")
	}

	return nil
}

func isNil(s api.Scheme) bool {
	if s == nil {
		return true
	}

	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Identifier returns the storage path.
func (t *Tap) Identifier() string { return t.path }

// Scheme returns the bound scheme.
func (t *Tap) Scheme() api.Scheme { return t.scheme }

// SinkMode returns the bound sink mode.
func (t *Tap) SinkMode() SinkMode { return t.mode }

// SinkParts returns the number of part files a write produces.
func (t *Tap) SinkParts() int { return t.parts }

// SourceFields returns the fields of the tuples a read produces.
func (t *Tap) SourceFields() tuple.Fields { return t.scheme.SourceFields() }

// SinkFields returns the fields of the tuples a write accepts.
func (t *Tap) SinkFields() tuple.Fields { return t.scheme.SinkFields() }

// Equal reports whether both taps address the same path with the same sink
// settings and the same source and sink field sets.
func (t *Tap) Equal(other *Tap) bool {
	if t == nil || other == nil {
		return t == other
	}

	return t.path == other.path &&
		t.mode == other.mode &&
		t.parts == other.parts &&
		t.SourceFields().Equal(other.SourceFields()) &&
		t.SinkFields().Equal(other.SinkFields())
}

func (t *Tap) String() string {
	return fmt.Sprintf("tap[%s][%q]", schemeName(t.scheme), t.path)
}

func schemeName(s api.Scheme) string {
	if str, ok := s.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%T%s", s, s.SourceFields())
}
