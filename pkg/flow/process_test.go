package flow

import (
	"log/slog"
	"testing"

	"github.com/prxssh/tap/pkg/fs"
	"github.com/prxssh/tap/pkg/props"
	"github.com/stretchr/testify/require"
)

func TestNewProcessDefaults(t *testing.T) {
	p := NewProcess()

	require.IsType(t, &fs.Local{}, p.Storer)
	require.NotNil(t, p.Properties)
	require.Same(t, slog.Default(), p.Log())
}

func TestNewProcessOptions(t *testing.T) {
	mem := fs.NewMemoryStorage()
	logger := slog.New(slog.DiscardHandler)

	p := NewProcess(
		WithStorer(mem),
		WithLogger(logger),
		WithProperties(props.Properties{"k": "v"}),
	)

	require.Same(t, mem, p.Storer)
	require.Same(t, logger, p.Log())
	require.Equal(t, "v", p.Properties["k"])
}

func TestZeroProcessLogger(t *testing.T) {
	var p Process
	require.NotNil(t, p.Log())
}
