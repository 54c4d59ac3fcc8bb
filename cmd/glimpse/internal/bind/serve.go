package bind

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/glimpse-dev/glimpse/pkg/config"
	srv "github.com/glimpse-dev/glimpse/pkg/server"
)

// ApplyServeFlags overlays serve command flags onto an already loaded
// configuration and validates the result.
//
// Flags only override when the user actually set them, so values coming
// from glimpse.yaml, .env, or the environment survive an unflagged run.
//
// Flags read:
//   - --addr: listen address ("" binds all interfaces)
//   - --port: listen port (1-65535)
//   - --dir: directory to serve (a positional argument wins over the flag)
//   - --no-listing: disable directory listings
//   - --spa: serve index.html for unknown extensionless routes
//   - --cors: send permissive CORS headers
//   - --no-browser: skip opening the browser after startup
//   - --open-delay: wait before opening the browser
//   - --reload: watch the served directory and live reload pages
//   - --reload-ext: file extensions that trigger a reload
//
// Returns an error if validation fails (e.g., port out of range).
func ApplyServeFlags(cmd *cobra.Command, args []string, cfg *config.Config) error {
	flags := cmd.Flags()

	if changed(flags, "addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if changed(flags, "port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if changed(flags, "dir") {
		cfg.Server.Dir, _ = flags.GetString("dir")
	}
	if len(args) > 0 {
		cfg.Server.Dir = args[0]
	}
	if changed(flags, "no-listing") {
		v, _ := flags.GetBool("no-listing")
		cfg.Server.Listing = !v
	}
	if changed(flags, "spa") {
		cfg.Server.SPA, _ = flags.GetBool("spa")
	}
	if changed(flags, "cors") {
		cfg.Server.CORS, _ = flags.GetBool("cors")
	}
	if changed(flags, "no-browser") {
		v, _ := flags.GetBool("no-browser")
		cfg.Browser.Open = !v
	}
	if changed(flags, "open-delay") {
		cfg.Browser.Delay, _ = flags.GetDuration("open-delay")
	}
	if changed(flags, "reload") {
		cfg.Reload.Enabled, _ = flags.GetBool("reload")
	}
	if changed(flags, "reload-ext") {
		cfg.Reload.Extensions, _ = flags.GetStringSlice("reload-ext")
	}

	// Validate port range
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return srv.NewInvalidPortError(cfg.Server.Port)
	}

	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		return srv.WrapInvalidConfig(err)
	}

	return nil
}

// changed reports whether the flag exists and was set on the command line.
// Bare glimpse runs through the root command, which registers none of the
// serve flags.
func changed(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
