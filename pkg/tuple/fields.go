package tuple

import (
	"fmt"
	"strings"
)

// Field describes a single named, typed position in a tuple.
type Field struct {
	Name string `yaml:"name"`
	Type Type   `yaml:"type,omitempty"`
}

// Fields is an ordered list of fields. It is the shape a scheme advertises for
// the tuples it reads and writes.
type Fields []Field

// NewFields builds untyped fields from names.
func NewFields(names ...string) Fields {
	fields := make(Fields, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name}
	}
	return fields
}

// Validate reports empty or duplicate field names.
func (f Fields) Validate() error {
	seen := make(map[string]struct{}, len(f))
	for i, field := range f {
		if field.Name == "" {
			return fmt.Errorf("tuple: field %d has no name", i)
		}
		if _, ok := seen[field.Name]; ok {
			return fmt.Errorf("tuple: duplicate field %q", field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	return nil
}

// Len returns the number of fields.
func (f Fields) Len() int {
	return len(f)
}

// Index returns the position of the named field, or -1.
func (f Fields) Index(name string) int {
	for i, field := range f {
		if field.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Equal reports whether both lists hold the same names and types in the same
// order.
func (f Fields) Equal(other Fields) bool {
	if len(f) != len(other) {
		return false
	}
	for i := range f {
		if f[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares nothing with f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return append(Fields(nil), f...)
}

// Coerce converts every value of t to its field's type, in place. The tuple
// must have exactly one value per field.
func (f Fields) Coerce(t Tuple) error {
	if len(t) != len(f) {
		return fmt.Errorf("tuple: got %d values for %d fields", len(t), len(f))
	}
	for i, field := range f {
		v, err := field.Type.Coerce(t[i])
		if err != nil {
			return fmt.Errorf("field %q: %w", field.Name, err)
		}
		t[i] = v
	}
	return nil
}

func (f Fields) String() string {
	parts := make([]string, len(f))
	for i, field := range f {
		if field.Type == TypeAny {
			parts[i] = field.Name
			continue
		}
		parts[i] = field.Name + ":" + field.Type.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
