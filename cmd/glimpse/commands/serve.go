package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/glimpse-dev/glimpse/cmd/glimpse/internal/bind"
	"github.com/glimpse-dev/glimpse/cmd/glimpse/internal/format"
	"github.com/glimpse-dev/glimpse/pkg/appctx"
	"github.com/glimpse-dev/glimpse/pkg/browser"
	"github.com/glimpse-dev/glimpse/pkg/logging"
	"github.com/glimpse-dev/glimpse/pkg/paths"
	serversvc "github.com/glimpse-dev/glimpse/pkg/server"
	"github.com/glimpse-dev/glimpse/pkg/server/app"
	"github.com/glimpse-dev/glimpse/pkg/state"
	"github.com/glimpse-dev/glimpse/pkg/version"
)

const opServe = "start server"

// newServeCommand creates and returns the 'glimpse serve' command.
//
// Serving means three things happen in one runtime:
//   - a static file server binds the configured port
//   - the default browser opens at the served address after a short delay
//   - optionally, the served directory is watched and connected pages
//     live reload on changes
//
// The server runs until interrupted (Ctrl+C) or killed, then shuts down
// gracefully and drops its instance record.
//
// Example usage:
//
//	glimpse serve
//	glimpse serve ./public --port 3000
//	glimpse serve --reload --no-browser
func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve a directory and open it in the browser",
		Long: `Serve a directory over HTTP and open the default browser at it.

With no directory argument, the directory containing the glimpse binary
is served: dropping the binary next to an index.html and running it is
the whole setup.

The server runs until interrupted (Ctrl+C), performing a graceful
shutdown so in-flight responses complete.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runServe,
	}

	// Serve-specific flags
	cmd.Flags().String("addr", "", "Listen address (empty binds all interfaces)")
	cmd.Flags().Int("port", 8080, "Listen port")
	cmd.Flags().String("dir", "", "Directory to serve (defaults to the executable's directory)")
	cmd.Flags().Bool("no-browser", false, "Do not open the browser after startup")
	cmd.Flags().Duration("open-delay", time.Second, "Delay before opening the browser")
	cmd.Flags().Bool("no-listing", false, "Disable directory listings")
	cmd.Flags().Bool("spa", false, "Serve index.html for unknown extensionless routes")
	cmd.Flags().Bool("reload", false, "Watch the served directory and live reload pages")
	cmd.Flags().StringSlice("reload-ext", nil, "File extensions that trigger a reload (empty for all)")
	cmd.Flags().Bool("cors", false, "Send permissive CORS headers")

	return cmd
}

// runServe also backs the bare root invocation, so it must not assume the
// serve flags exist on cmd.
func runServe(cmd *cobra.Command, args []string) error {
	formatter := format.FromCommand(cmd)

	// Get config manager from context
	cfgMgr, ok := appctx.Config(cmd.Context())
	if !ok {
		err := serversvc.ErrConfigUnavailable
		_ = formatter.PrintTotalFailureSummary(opServe, err, serversvc.ErrorCode(err))
		return err
	}

	// Work on a copy: flag overlays are per-invocation and must not leak
	// into the shared manager.
	cfg := *cfgMgr.Get()

	if err := bind.ApplyServeFlags(cmd, args, &cfg); err != nil {
		_ = formatter.PrintTotalFailureSummary(opServe, err, serversvc.ErrorCode(err))
		return err
	}

	// Honor the project's requires constraint before binding anything.
	if cfg.Requires != "" {
		satisfied, err := version.Satisfies(cfg.Requires)
		if err != nil {
			wrapped := serversvc.WrapInvalidConfig(err)
			_ = formatter.PrintTotalFailureSummary(opServe, wrapped, serversvc.ErrorCode(wrapped))
			return wrapped
		}
		if !satisfied {
			err := serversvc.NewVersionUnsupportedError(cfg.Requires, version.Version)
			_ = formatter.PrintTotalFailureSummary(opServe, err, serversvc.ErrorCode(err))
			return err
		}
	}

	dir, err := resolveServeDir(cfg.Server.Dir)
	if err != nil {
		wrapped := serversvc.WrapAppInit(err)
		_ = formatter.PrintTotalFailureSummary(opServe, wrapped, serversvc.ErrorCode(wrapped))
		return wrapped
	}

	logger := logging.NewLogger("server", logging.ParseLogLevel(cfg.Log.Level))

	deps := &app.Deps{
		Opener: browser.New(),
		Config: cfgMgr,
		Logger: logger,
	}

	// Instance tracking is best-effort: an unwritable cache directory must
	// not prevent serving, it only breaks glimpse open.
	if store, err := state.NewStore(); err != nil {
		logger.Warn().Err(err).Msg("Instance state disabled")
	} else {
		deps.Store = store
	}

	serverApp, err := app.New(cmd.Context(), cfg, dir, deps)
	if err != nil {
		err = describePortHolder(cmd.Context(), err, deps.Store, cfg.Server.Port)
		_ = formatter.PrintTotalFailureSummary(opServe, err, serversvc.ErrorCode(err))
		return err
	}

	_ = formatter.PrintBanner(format.Banner{
		Name:    cliExecutable,
		Version: version.Version,
		URL:     serverApp.URL(),
		Dir:     serverApp.Dir(),
		Reload:  cfg.Reload.Enabled,
	})

	// Run server (blocks until shutdown)
	if err := serverApp.Run(cmd.Context()); err != nil {
		_ = formatter.PrintTotalFailureSummary(opServe, err, serversvc.ErrorCode(err))
		return err
	}

	_ = formatter.PrintSuccessSummary("stopped", "server")
	return nil
}

// resolveServeDir picks the directory to serve: the configured one made
// absolute, or the directory containing the running executable when
// nothing was configured.
func resolveServeDir(configured string) (string, error) {
	if configured != "" {
		return filepath.Abs(configured)
	}
	return paths.ExecutableDir()
}

// describePortHolder names the glimpse instance occupying the port when
// the instance record points at it. The bare bind error only says the
// port is busy; the record can say who holds it.
func describePortHolder(ctx context.Context, err error, store *state.Store, port int) error {
	if err == nil || store == nil || !errors.Is(err, serversvc.ErrPortInUse) {
		return err
	}
	inst, readErr := store.Read(ctx)
	if readErr != nil || inst.Port != port {
		return err
	}
	return fmt.Errorf("%w (glimpse pid %d already serves %s at %s)", err, inst.PID, inst.Dir, inst.URL)
}
