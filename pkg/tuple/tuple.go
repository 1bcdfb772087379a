package tuple

import "fmt"

// Tuple is one logical record: an ordered list of values.
type Tuple []any

// Entry pairs a tuple with the fields that name its values.
type Entry struct {
	Fields Fields
	Tuple  Tuple
}

// NewEntry pairs fields and values.
func NewEntry(fields Fields, values Tuple) Entry {
	return Entry{Fields: fields, Tuple: values}
}

// Len returns the number of values.
func (e Entry) Len() int {
	return len(e.Tuple)
}

// Get returns the value of the named field.
func (e Entry) Get(name string) (any, bool) {
	i := e.Fields.Index(name)
	if i < 0 || i >= len(e.Tuple) {
		return nil, false
	}
	return e.Tuple[i], true
}

// String returns the named value formatted with fmt, or "" when the field is
// absent or null.
func (e Entry) String(name string) string {
	v, ok := e.Get(name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
