package tuple

import (
	"fmt"
	"math"
	"strconv"
)

// Type is the declared value type of a field. Decoded values are coerced to
// the Go representation of their field's Type before they reach a consumer.
type Type uint8

const (
	// TypeAny leaves decoded values untouched.
	TypeAny Type = iota

	// TypeString holds string values.
	TypeString

	// TypeInt64 holds int64 values.
	TypeInt64

	// TypeFloat64 holds float64 values.
	TypeFloat64

	// TypeBool holds bool values.
	TypeBool

	// TypeBytes holds []byte values.
	TypeBytes
)

var typeNames = [...]string{
	TypeAny:     "any",
	TypeString:  "string",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeBool:    "bool",
	TypeBytes:   "bytes",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType returns the Type named s. The empty string is TypeAny.
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeAny, nil
	}
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return TypeAny, fmt.Errorf("tuple: unknown type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	if int(t) >= len(typeNames) {
		return nil, fmt.Errorf("tuple: unknown type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Coerce converts v to the Go representation of t. A nil value is a null and
// is valid for every type.
func (t Type) Coerce(v any) (any, error) {
	if v == nil || t == TypeAny {
		return v, nil
	}

	switch t {
	case TypeString:
		return toString(v)
	case TypeInt64:
		return toInt64(v)
	case TypeFloat64:
		return toFloat64(v)
	case TypeBool:
		return toBool(v)
	case TypeBytes:
		return toBytes(v)
	default:
		return nil, fmt.Errorf("tuple: unknown type %d", uint8(t))
	}
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}

	if n, ok := asInt64(v); ok {
		return strconv.FormatInt(n, 10), nil
	}
	if u, ok := v.(uint64); ok {
		return strconv.FormatUint(u, 10), nil
	}
	return nil, fmt.Errorf("tuple: cannot convert %T to string", v)
}

func toInt64(v any) (any, error) {
	if n, ok := asInt64(v); ok {
		return n, nil
	}

	switch x := v.(type) {
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("tuple: %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if x != math.Trunc(x) || x >= math.MaxInt64 || x < math.MinInt64 {
			return nil, fmt.Errorf("tuple: %v is not an integer", x)
		}
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("tuple: %w", err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("tuple: cannot convert %T to int64", v)
}

func toFloat64(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, fmt.Errorf("tuple: %w", err)
		}
		return f, nil
	}

	if n, ok := asInt64(v); ok {
		return float64(n), nil
	}
	return nil, fmt.Errorf("tuple: cannot convert %T to float64", v)
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return nil, fmt.Errorf("tuple: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("tuple: cannot convert %T to bool", v)
}

func toBytes(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("tuple: cannot convert %T to bytes", v)
}

// asInt64 widens every signed integer kind and the unsigned kinds that always
// fit. uint64 is left to the caller since it may overflow.
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}
