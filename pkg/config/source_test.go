package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSource_Priority(t *testing.T) {
	src := &DefaultSource{}
	assert.Equal(t, 10, src.Priority())
	assert.Equal(t, "defaults", src.Name())
}

func TestDefaultSource_Load(t *testing.T) {
	k := koanf.New(".")
	src := &DefaultSource{}

	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "info", k.String("log.level"))
	assert.Equal(t, 8080, k.Int("server.port"))
	assert.True(t, k.Bool("browser.open"))
}

func TestFileSource_Priority(t *testing.T) {
	src := &FileSource{Path: "/tmp/test.yaml"}
	assert.Equal(t, 20, src.Priority())
	assert.Equal(t, "file:/tmp/test.yaml", src.Name())
}

func TestFileSource_Load_EmptyPath(t *testing.T) {
	k := koanf.New(".")
	src := &FileSource{Path: ""}

	err := src.Load(k)
	require.NoError(t, err, "Empty path should skip silently")
}

func TestFileSource_Load_MissingProbedFile(t *testing.T) {
	k := koanf.New(".")
	src := &FileSource{Path: "/nonexistent/path/glimpse.yaml"}

	err := src.Load(k)
	require.NoError(t, err, "Probed file that does not exist should skip silently")
}

func TestFileSource_Load_MissingExplicitFile(t *testing.T) {
	k := koanf.New(".")
	src := &FileSource{Path: "/nonexistent/path/glimpse.yaml", Explicit: true}

	err := src.Load(k)
	require.Error(t, err, "Explicitly requested file that does not exist should fail")
}

func TestFileSource_Load_ValidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "glimpse.yaml")
	configContent := `
log:
  level: warn
  format: json
server:
  port: 9999
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	k := koanf.New(".")
	src := &FileSource{Path: configPath}

	err = src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "warn", k.String("log.level"))
	assert.Equal(t, "json", k.String("log.format"))
	assert.Equal(t, 9999, k.Int("server.port"))
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	assert.Equal(t, "", FindConfigFile(), "no config file should be found in an empty directory")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "glimpse.yml"), []byte("{}\n"), 0o644))
	assert.Equal(t, "glimpse.yml", FindConfigFile())

	// .yaml wins over .yml when both exist
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "glimpse.yaml"), []byte("{}\n"), 0o644))
	assert.Equal(t, "glimpse.yaml", FindConfigFile())
}

func TestDotenvSource_Priority(t *testing.T) {
	src := &DotenvSource{}
	assert.Equal(t, 25, src.Priority())
	assert.Equal(t, "dotenv", src.Name())
}

func TestDotenvSource_Load_MissingFile(t *testing.T) {
	k := koanf.New(".")
	src := &DotenvSource{Path: "/nonexistent/.env"}

	err := src.Load(k)
	require.NoError(t, err, "Missing .env should skip silently")
}

func TestDotenvSource_Load(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("GLIMPSE_LOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("GLIMPSE_LOG_FORMAT") })

	src := &DotenvSource{Path: envPath}
	require.NoError(t, src.Load(koanf.New(".")))

	assert.Equal(t, "json", os.Getenv("GLIMPSE_LOG_FORMAT"))
}

func TestDotenvSource_Load_DoesNotOverrideEnv(t *testing.T) {
	t.Setenv("GLIMPSE_LOG_FORMAT", "text")

	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("GLIMPSE_LOG_FORMAT=json\n"), 0o644))

	src := &DotenvSource{Path: envPath}
	require.NoError(t, src.Load(koanf.New(".")))

	assert.Equal(t, "text", os.Getenv("GLIMPSE_LOG_FORMAT"),
		"real environment should win over .env")
}

func TestEnvSource_Priority(t *testing.T) {
	src := &EnvSource{}
	assert.Equal(t, 30, src.Priority())
	assert.Equal(t, "env", src.Name())
}

func TestEnvSource_Load(t *testing.T) {
	t.Setenv("GLIMPSE_LOG_LEVEL", "error")
	t.Setenv("GLIMPSE_SERVER_PORT", "8888")

	k := koanf.New(".")
	src := &EnvSource{Prefix: "GLIMPSE_"}

	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "error", k.String("log.level"))
	assert.Equal(t, 8888, k.Int("server.port"))
}

func TestEnvSource_Load_DefaultPrefix(t *testing.T) {
	t.Setenv("GLIMPSE_LOG_FORMAT", "json")

	k := koanf.New(".")
	src := &EnvSource{} // No prefix specified, should default to GLIMPSE_

	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "json", k.String("log.format"))
}

func TestFlagSource_Priority(t *testing.T) {
	src := &FlagSource{}
	assert.Equal(t, 40, src.Priority())
	assert.Equal(t, "flags", src.Name())
}

func TestFlagSource_Load_NilFlags(t *testing.T) {
	k := koanf.New(".")
	src := &FlagSource{Flags: nil}

	err := src.Load(k)
	require.NoError(t, err, "Nil flags should skip silently")
}

func TestFlagSource_Load(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "info", "")
	_ = flags.Set("log.level", "debug")

	k := koanf.New(".")
	src := &FlagSource{Flags: flags}
	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "debug", k.String("log.level"))
}

func TestFlagSource_Load_DebugFlag(t *testing.T) {
	k := koanf.New(".")

	src := &FlagSource{Flags: nil, Debug: true}
	err := src.Load(k)
	require.NoError(t, err)

	assert.Equal(t, "debug", k.String("log.level"))
}

func TestDefaultSources_Order(t *testing.T) {
	sources := DefaultSources("/tmp/glimpse.yaml", false, nil, false)

	require.Len(t, sources, 5)
	assert.Equal(t, "defaults", sources[0].Name())
	assert.Equal(t, "file:/tmp/glimpse.yaml", sources[1].Name())
	assert.Equal(t, "dotenv", sources[2].Name())
	assert.Equal(t, "env", sources[3].Name())
	assert.Equal(t, "flags", sources[4].Name())
}

func TestDefaultSources_Priorities(t *testing.T) {
	sources := DefaultSources("", false, nil, false)

	// Verify priorities are in ascending order
	for i := 1; i < len(sources); i++ {
		assert.Greater(t, sources[i].Priority(), sources[i-1].Priority(),
			"Source %s should have higher priority than %s",
			sources[i].Name(), sources[i-1].Name())
	}
}

func TestLoad_CustomSource(t *testing.T) {
	// Custom source inserted between file (20) and env (30)
	customSource := &mockSource{
		name:     "custom",
		priority: 25,
		loadFunc: func(k *koanf.Koanf) error {
			return k.Set("log.level", "warn")
		},
	}

	m := NewManager()
	cfg, err := m.Load(&DefaultSource{}, customSource, &EnvSource{})
	require.NoError(t, err)

	// GLIMPSE_LOG_LEVEL is not set, so the custom value should remain
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_PriorityOrdering(t *testing.T) {
	t.Setenv("GLIMPSE_LOG_LEVEL", "error")

	m := NewManager()
	// Pass the sources out of order; Load must still apply defaults first.
	cfg, err := m.Load(&EnvSource{}, &DefaultSource{})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
}

// mockSource is a test helper for custom config sources
type mockSource struct {
	name     string
	priority int
	loadFunc func(k *koanf.Koanf) error
}

func (m *mockSource) Name() string  { return m.name }
func (m *mockSource) Priority() int { return m.priority }
func (m *mockSource) Load(k *koanf.Koanf) error {
	if m.loadFunc != nil {
		return m.loadFunc(k)
	}
	return nil
}
