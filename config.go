package tap

// Config holds the optional settings a tap is built with. The scheme and path
// are required and passed to New directly.
type Config struct {
	// SinkMode decides how a write treats data already at the path.
	// Defaults to SinkModeKeep.
	SinkMode SinkMode

	// SinkParts is the number of part files a write session produces. Tuples
	// are spread over parts by an FNV hash of their first sink field.
	// Defaults to 1.
	SinkParts int
}

type Option func(*Config)

// WithSinkMode sets the sink mode.
func WithSinkMode(mode SinkMode) Option {
	return func(c *Config) {
		c.SinkMode = mode
	}
}

// WithSinkParts sets the number of part files written per session.
func WithSinkParts(n int) Option {
	return func(c *Config) {
		c.SinkParts = n
	}
}

// WithReplace sets SinkModeReplace when replace is true and SinkModeKeep
// otherwise.
//
// Deprecated: use WithSinkMode.
func WithReplace(replace bool) Option {
	return WithSinkMode(ReplaceMode(replace))
}

func defaultConfig() *Config {
	return &Config{
		SinkMode:  SinkModeKeep,
		SinkParts: 1,
	}
}

func newConfig(opts ...Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}
