// Package props holds the flat key/value configuration an execution context
// hands to taps and schemes.
package props

import (
	"fmt"
	"io"
	"maps"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"storj.io/common/memory"
)

// Properties maps dotted keys (e.g. "tap.read.buffer.size") to string values.
// A nil Properties is valid and empty.
type Properties map[string]string

// Load reads a YAML document and flattens nested mappings into dotted keys.
// Sequences become comma-separated values.
func Load(r io.Reader) (Properties, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Properties{}, nil
		}
		return nil, fmt.Errorf("props: decode yaml: %w", err)
	}

	p := make(Properties)
	flatten(p, "", doc)
	return p, nil
}

func flatten(p Properties, prefix string, node map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch x := v.(type) {
		case map[string]any:
			flatten(p, key, x)
		case []any:
			items := make([]string, len(x))
			for i, item := range x {
				items[i] = fmt.Sprint(item)
			}
			p[key] = strings.Join(items, ",")
		case nil:
			p[key] = ""
		default:
			p[key] = fmt.Sprint(x)
		}
	}
}

// Merge returns a new Properties holding p overlaid with other.
func (p Properties) Merge(other Properties) Properties {
	out := make(Properties, len(p)+len(other))
	maps.Copy(out, p)
	maps.Copy(out, other)
	return out
}

// Keys returns the keys in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key, or def when unset.
func (p Properties) String(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Bool returns the value of key parsed as a bool, or def when unset.
func (p Properties) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("props: %s: %w", key, err)
	}
	return b, nil
}

// Int returns the value of key parsed as an int, or def when unset.
func (p Properties) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("props: %s: %w", key, err)
	}
	return n, nil
}

// Size returns the value of key parsed as a memory size ("64KiB", "1MB",
// "4096"), or def when unset.
func (p Properties) Size(key string, def memory.Size) (memory.Size, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return def, nil
	}

	size, err := ParseSize(v)
	if err != nil {
		return def, fmt.Errorf("props: %s: %w", key, err)
	}
	return size, nil
}

// ParseSize parses a memory size such as "64KiB", "1.5MB" or "4096".
func ParseSize(s string) (memory.Size, error) {
	s = strings.TrimSpace(s)

	// memory.Size.Set indexes past the start of a value with no number in it.
	if s == "" || !strings.ContainsRune("0123456789-.", rune(s[0])) {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	var size memory.Size
	if err := size.Set(s); err != nil {
		return 0, err
	}
	return size, nil
}
