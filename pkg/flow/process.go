// Package flow carries the runtime configuration taps are opened with.
package flow

import (
	"log/slog"

	"github.com/prxssh/tap/api"
	"github.com/prxssh/tap/pkg/fs"
	"github.com/prxssh/tap/pkg/props"
)

// Process is the execution context a tap is opened in. Taps only read from
// it; a Process may be shared by any number of concurrent reads and writes.
type Process struct {
	// Storer resolves tap paths to byte streams. Defaults to the local file
	// system.
	Storer api.Storer

	// Properties are handed to schemes when records are framed, e.g. buffer
	// sizes or header handling.
	Properties props.Properties

	// Logger receives session lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

type Option func(*Process)

// WithStorer sets the storage backend.
func WithStorer(s api.Storer) Option {
	return func(p *Process) {
		p.Storer = s
	}
}

// WithProperties sets the runtime properties.
func WithProperties(props props.Properties) Option {
	return func(p *Process) {
		p.Properties = props
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Process) {
		p.Logger = logger
	}
}

func NewProcess(opts ...Option) *Process {
	p := &Process{}
	for _, opt := range opts {
		opt(p)
	}

	if p.Storer == nil {
		p.Storer = fs.NewLocalStorage()
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Properties == nil {
		p.Properties = props.Properties{}
	}

	return p
}

// Log returns the process logger, falling back to slog.Default() for a
// zero-value Process.
func (p *Process) Log() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
