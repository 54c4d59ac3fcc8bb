// Package config implements layered configuration for glimpse.
//
// Configuration values are merged from several sources in priority order
// (defaults, config file, .env file, environment, command line flags) on
// top of a single koanf instance, then unmarshalled into the typed Config
// structure and validated.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
)

// Manager owns a koanf instance and the typed configuration derived from
// it. A Manager is safe for concurrent use after Load has returned.
type Manager struct {
	mu     sync.RWMutex
	koanf  *koanf.Koanf
	config *Config
}

var (
	defaultManager *Manager
	managerOnce    sync.Once
)

// Default returns the process-wide Manager, creating it on first use.
func Default() *Manager {
	managerOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// NewManager returns a Manager with no configuration loaded yet.
func NewManager() *Manager {
	return &Manager{
		koanf: koanf.New("."),
	}
}

// DefaultConfig returns the built-in defaults. These are the values the
// launcher runs with when no config file, environment or flags override
// them: port 8080 on all interfaces, serving the executable's directory,
// opening the browser after one second.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:         "",
			Port:         8080,
			Dir:          "",
			Listing:      true,
			SPA:          false,
			NoCache:      true,
			CORS:         false,
			MIME:         map[string]string{},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Browser: BrowserConfig{
			Open:  true,
			Delay: time.Second,
		},
		Reload: ReloadConfig{
			Enabled:    false,
			Extensions: []string{},
			Debounce:   250 * time.Millisecond,
		},
	}
}

// DefaultConfigAsMap flattens DefaultConfig into koanf paths so it can be
// fed through the confmap provider as the lowest-priority source.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"requires":             def.Requires,
		"log.level":            def.Log.Level,
		"log.format":           def.Log.Format,
		"log.file":             def.Log.File,
		"server.addr":          def.Server.Addr,
		"server.port":          def.Server.Port,
		"server.dir":           def.Server.Dir,
		"server.listing":       def.Server.Listing,
		"server.spa":           def.Server.SPA,
		"server.nocache":       def.Server.NoCache,
		"server.cors":          def.Server.CORS,
		"server.mime":          def.Server.MIME,
		"server.read_timeout":  def.Server.ReadTimeout,
		"server.write_timeout": def.Server.WriteTimeout,
		"browser.open":         def.Browser.Open,
		"browser.delay":        def.Browser.Delay,
		"reload.enabled":       def.Reload.Enabled,
		"reload.extensions":    def.Reload.Extensions,
		"reload.debounce":      def.Reload.Debounce,
	}
}

// BindFlags registers configuration flags whose names mirror koanf paths,
// so the flag source merges them without any name translation. Friendly
// command-specific aliases like --port live on their commands instead.
func BindFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	flags.String("log.level", defaults.Log.Level, "Log level (trace, debug, info, warn, error)")
	flags.String("log.format", defaults.Log.Format, "Log format (text, json)")
	flags.String("log.file", defaults.Log.File, "Path to log file (leave empty for stderr)")
}

// Load merges the given sources in ascending priority order, unmarshals
// the result and validates it. On success the typed config is retained
// and returned.
func (m *Manager) Load(sources ...Source) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rebuild from scratch so repeated loads do not accumulate stale keys.
	m.koanf = koanf.New(".")

	for _, src := range sortByPriority(sources) {
		if err := src.Load(m.koanf); err != nil {
			return nil, fmt.Errorf("loading %s configuration: %w", src.Name(), err)
		}
		log.Trace().Str("source", src.Name()).Int("priority", src.Priority()).Msg("configuration source merged")
	}

	var cfg Config
	if err := m.koanf.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}

	Normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	m.config = &cfg
	return m.config, nil
}

// Get returns the most recently loaded configuration, or defaults when
// Load has not run yet.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		def := DefaultConfig()
		return &def
	}
	return m.config
}

// Koanf exposes the underlying koanf instance for callers that need raw
// key access, such as printing the effective configuration.
func (m *Manager) Koanf() *koanf.Koanf {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanf
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural constraints declared on the Config tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid configuration: field %s failed %q validation", strings.ToLower(first.Namespace()), first.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}

// Normalize cleans up values that arrive in user-friendly but loose form.
// Load applies it automatically; callers that overlay values afterwards,
// such as flag binding, run it again.
func Normalize(cfg *Config) {
	// Extensions may arrive as "html", ".html" or "HTML". Store them in
	// one canonical form so the watcher can compare cheaply.
	if len(cfg.Reload.Extensions) > 0 {
		exts := lo.Map(cfg.Reload.Extensions, func(ext string, _ int) string {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			return ext
		})
		cfg.Reload.Extensions = lo.Uniq(lo.Filter(exts, func(ext string, _ int) bool {
			return ext != ""
		}))
	}

	// MIME keys follow the same ".ext" convention.
	if len(cfg.Server.MIME) > 0 {
		mime := make(map[string]string, len(cfg.Server.MIME))
		for ext, typ := range cfg.Server.MIME {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			mime[ext] = strings.TrimSpace(typ)
		}
		cfg.Server.MIME = mime
	}

	cfg.Requires = strings.TrimSpace(cfg.Requires)
}
