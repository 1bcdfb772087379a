package tap

import "fmt"

// SinkMode decides what a write does when the tap's path already holds data.
// The zero value is SinkModeKeep.
type SinkMode uint8

const (
	// SinkModeKeep refuses to write over existing data.
	SinkModeKeep SinkMode = iota

	// SinkModeReplace deletes existing data before the first record is
	// written.
	SinkModeReplace

	// SinkModeAppend leaves existing data in place and adds new part files
	// next to it.
	SinkModeAppend
)

var sinkModeNames = [...]string{
	SinkModeKeep:    "keep",
	SinkModeReplace: "replace",
	SinkModeAppend:  "append",
}

func (m SinkMode) valid() bool {
	return int(m) < len(sinkModeNames)
}

func (m SinkMode) String() string {
	if m.valid() {
		return sinkModeNames[m]
	}
	return fmt.Sprintf("sinkmode(%d)", uint8(m))
}

// ParseSinkMode returns the mode named s. The empty string is SinkModeKeep.
func ParseSinkMode(s string) (SinkMode, error) {
	if s == "" {
		return SinkModeKeep, nil
	}
	for i, name := range sinkModeNames {
		if name == s {
			return SinkMode(i), nil
		}
	}
	return SinkModeKeep, fmt.Errorf("tap: unknown sink mode %q", s)
}

// ReplaceMode translates the legacy replace flag: true is SinkModeReplace,
// false is SinkModeKeep.
func ReplaceMode(replace bool) SinkMode {
	if replace {
		return SinkModeReplace
	}
	return SinkModeKeep
}

func (m SinkMode) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("tap: unknown sink mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *SinkMode) UnmarshalText(text []byte) error {
	parsed, err := ParseSinkMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
