package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	serversvc "github.com/glimpse-dev/glimpse/pkg/server"
)

// newTestCommand builds the CLI with captured output and per-test cache,
// config, and log isolation.
func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GLIMPSE_LOG_LEVEL", "error")

	cmd := NewCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "open", "init", "version"} {
		require.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRootCommandRunsVersionShort(t *testing.T) {
	cmd, buf := newTestCommand(t)
	cmd.SetArgs([]string{"version", "--short"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, buf.String(), "glimpse version: dev")
	require.NotContains(t, buf.String(), "Go Version:")
}

func TestRootCommandRunsVersionFull(t *testing.T) {
	cmd, buf := newTestCommand(t)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, buf.String(), "glimpse version: dev")
	require.Contains(t, buf.String(), "Go Version:")
	require.Contains(t, buf.String(), "Platform:")
}

func TestRootCommandVersionJSON(t *testing.T) {
	cmd, buf := newTestCommand(t)
	cmd.SetArgs([]string{"version", "--output", "json"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	require.Equal(t, "dev", payload["version"])
	require.NotEmpty(t, payload["goVersion"])
}

func TestRootCommandBrokenConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server: [unclosed\n"), 0o644))

	cmd, buf := newTestCommand(t)
	cmd.SetArgs([]string{"version", "--config", cfgPath})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	require.Equal(t, 2, serversvc.ExitCode(err))
	require.Contains(t, buf.String(), "Failed to load configuration")
}

func TestRootCommandMissingExplicitConfigFile(t *testing.T) {
	cmd, _ := newTestCommand(t)
	cmd.SetArgs([]string{"version", "--config", filepath.Join(t.TempDir(), "nope.yaml")})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	require.Equal(t, 2, serversvc.ExitCode(err))
}
