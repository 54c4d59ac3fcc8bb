package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "", cfg.Server.Addr)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "", cfg.Server.Dir)
	assert.True(t, cfg.Server.Listing)
	assert.False(t, cfg.Server.SPA)
	assert.True(t, cfg.Server.NoCache)
	assert.False(t, cfg.Server.CORS)
	assert.True(t, cfg.Browser.Open)
	assert.Equal(t, time.Second, cfg.Browser.Delay)
	assert.False(t, cfg.Reload.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Reload.Debounce)
}

func TestDefaultConfigAsMap(t *testing.T) {
	m := DefaultConfigAsMap()

	assert.Equal(t, 8080, m["server.port"])
	assert.Equal(t, "info", m["log.level"])
	assert.Equal(t, time.Second, m["browser.delay"])
	assert.Equal(t, false, m["reload.enabled"])
}

func TestManagerLoad_DefaultsOnly(t *testing.T) {
	m := NewManager()

	cfg, err := m.Load(&DefaultSource{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Browser.Open)
}

func TestManagerLoad_FileOverridesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	content := `
log:
  level: warn
server:
  port: 9999
  listing: false
browser:
  delay: 2s
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	m := NewManager()
	cfg, err := m.Load(&DefaultSource{}, &FileSource{Path: configPath})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Server.Listing)
	assert.Equal(t, 2*time.Second, cfg.Browser.Delay)
	// Untouched keys keep their defaults
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Server.NoCache)
}

func TestManagerLoad_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9999\n"), 0o644))
	t.Setenv("GLIMPSE_SERVER_PORT", "8888")

	m := NewManager()
	cfg, err := m.Load(&DefaultSource{}, &FileSource{Path: configPath}, &EnvSource{})
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
}

func TestManagerLoad_InvalidPort(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 99999\n"), 0o644))

	m := NewManager()
	_, err := m.Load(&DefaultSource{}, &FileSource{Path: configPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestManagerLoad_InvalidLogLevel(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: loud\n"), 0o644))

	m := NewManager()
	_, err := m.Load(&DefaultSource{}, &FileSource{Path: configPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestManagerLoad_NormalizesExtensions(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	content := `
reload:
  extensions: ["HTML", ".css", "css", " js ", ""]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	m := NewManager()
	cfg, err := m.Load(&DefaultSource{}, &FileSource{Path: configPath})
	require.NoError(t, err)

	assert.Equal(t, []string{".html", ".css", ".js"}, cfg.Reload.Extensions)
}

func TestManagerLoad_NormalizesMIME(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	content := `
server:
  mime:
    wasm: application/wasm
    .GLB: model/gltf-binary
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	m := NewManager()
	cfg, err := m.Load(&DefaultSource{}, &FileSource{Path: configPath})
	require.NoError(t, err)

	assert.Equal(t, "application/wasm", cfg.Server.MIME[".wasm"])
	assert.Equal(t, "model/gltf-binary", cfg.Server.MIME[".glb"])
}

func TestManagerGet_BeforeLoad(t *testing.T) {
	m := NewManager()
	cfg := m.Get()

	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestManagerLoad_Repeated(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9000\n"), 0o644))

	m := NewManager()
	_, err := m.Load(&DefaultSource{}, &FileSource{Path: configPath})
	require.NoError(t, err)

	// A second load without the file must not keep the file's values around.
	cfg, err := m.Load(&DefaultSource{})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(&cfg))
}
