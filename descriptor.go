package tap

import (
	"fmt"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/scheme"
	"gopkg.in/yaml.v3"
)

// Descriptor is the serialisable form of a tap.
type Descriptor struct {
	Path      string               `yaml:"path"`
	SinkMode  SinkMode             `yaml:"sink_mode"`
	SinkParts int                  `yaml:"sink_parts,omitempty"`
	Scheme    api.SchemeDescriptor `yaml:"scheme"`
}

// Resolver rebuilds a scheme from its descriptor.
type Resolver func(api.SchemeDescriptor) (api.Scheme, error)

// Descriptor describes the tap. The scheme must implement api.Describer.
func (t *Tap) Descriptor() (Descriptor, error) {
	d, ok := t.scheme.(api.Describer)
	if !ok {
		return Descriptor{}, api.ErrInvalidConfiguration.New("tap: scheme %s cannot be described", schemeName(t.scheme))
	}

	return Descriptor{
		Path:      t.path,
		SinkMode:  t.mode,
		SinkParts: t.parts,
		Scheme:    d.Describe(),
	}, nil
}

func (t *Tap) MarshalYAML() (any, error) {
	return t.Descriptor()
}

// Decode rebuilds a tap from a YAML descriptor. A nil resolve uses
// scheme.Resolve, which knows the built-in schemes. The result goes through
// the same checks as New.
func Decode(data []byte, resolve Resolver) (*Tap, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, api.ErrInvalidConfiguration.Wrap(fmt.Errorf("tap: decode descriptor: %w", err))
	}

	return FromDescriptor(d, resolve)
}

// FromDescriptor rebuilds a tap from d. A nil resolve uses scheme.Resolve.
func FromDescriptor(d Descriptor, resolve Resolver) (*Tap, error) {
	if resolve == nil {
		resolve = scheme.Resolve
	}

	s, err := resolve(d.Scheme)
	if err != nil {
		return nil, classify(err, &api.ErrInvalidConfiguration)
	}

	cfg := defaultConfig()
	cfg.SinkMode = d.SinkMode
	if d.SinkParts != 0 {
		cfg.SinkParts = d.SinkParts
	}

	t := newTap(d.Path)
	if err := t.bind(s, cfg); err != nil {
		return nil, err
	}
	return t, nil
}
