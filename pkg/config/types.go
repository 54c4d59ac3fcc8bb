package config

import "time"

// Config is the root configuration structure for the glimpse launcher.
// It aggregates all other specific configuration structs.
type Config struct {
	// Requires optionally constrains which glimpse versions may serve this
	// project, e.g. ">= 0.3". Checked at startup against the running build.
	Requires string `description:"Semver constraint the running glimpse version must satisfy" koanf:"requires"`

	Log     LogConfig     `description:"Logging configuration" koanf:"log"`
	Server  ServerConfig  `description:"HTTP server configuration" koanf:"server"`
	Browser BrowserConfig `description:"Browser opening configuration" koanf:"browser"`
	Reload  ReloadConfig  `description:"Live reload configuration" koanf:"reload"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level: trace | debug | info | warn | error" koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic"`
	Format string `description:"Log format: text | json" koanf:"format" validate:"omitempty,oneof=text json"`
	File   string `description:"Log file path (empty for stderr)" koanf:"file"`
}

// ServerConfig holds configuration for the static file server.
type ServerConfig struct {
	// Network settings. An empty Addr binds all interfaces, which is what
	// the launcher wants: the page must be reachable from the host browser
	// no matter how the machine resolves localhost.
	Addr string `description:"Listen address (empty for all interfaces)" koanf:"addr"`
	Port int    `description:"Listen port" koanf:"port" validate:"gte=1,lte=65535"`

	// Dir is the directory to serve. Empty means the directory containing
	// the glimpse executable.
	Dir string `description:"Directory to serve (empty for the executable's directory)" koanf:"dir"`

	// Handler behavior
	Listing bool `description:"Enable directory listings" koanf:"listing"`
	SPA     bool `description:"Serve index.html for unknown extensionless routes" koanf:"spa"`
	NoCache bool `description:"Send Cache-Control: no-store on every response" koanf:"nocache"`
	CORS    bool `description:"Send permissive CORS headers on every response" koanf:"cors"`

	// MIME maps file extensions (".wasm") to content types registered on
	// top of the platform defaults.
	MIME map[string]string `description:"Extra MIME type registrations" koanf:"mime"`

	// HTTP timeouts
	ReadTimeout  time.Duration `description:"HTTP read timeout" koanf:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `description:"HTTP write timeout" koanf:"write_timeout" validate:"min=0"`
}

// BrowserConfig controls the fire-and-forget browser open after startup.
type BrowserConfig struct {
	Open  bool          `description:"Open the default browser after startup" koanf:"open"`
	Delay time.Duration `description:"Delay before opening the browser" koanf:"delay" validate:"min=0"`
}

// ReloadConfig controls the opt-in live reload pipeline.
type ReloadConfig struct {
	Enabled bool `description:"Watch the served directory and reload connected pages" koanf:"enabled"`

	// Extensions filters which file changes trigger a reload. Empty means
	// every change counts. Entries are normalized to ".ext" form.
	Extensions []string `description:"File extensions that trigger a reload (empty for all)" koanf:"extensions"`

	Debounce time.Duration `description:"Quiet period before broadcasting a reload" koanf:"debounce" validate:"min=0"`
}
