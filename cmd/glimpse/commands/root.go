package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glimpse-dev/glimpse/cmd/glimpse/internal/format"
	"github.com/glimpse-dev/glimpse/pkg/appctx"
	"github.com/glimpse-dev/glimpse/pkg/config"
	"github.com/glimpse-dev/glimpse/pkg/logging"
	serversvc "github.com/glimpse-dev/glimpse/pkg/server"
)

const cliExecutable = "glimpse"

// NewCommand constructs the top-level glimpse CLI command, wiring global
// flags, configuration loading, and logging setup. Running glimpse with
// no subcommand serves the project, which is what double-clicking the
// binary does.
func NewCommand() *cobra.Command {
	var (
		configFile     string
		debug          bool
		verbosityCount int
	)

	cmd := &cobra.Command{
		Use:   cliExecutable + " [dir]",
		Short: "Glimpse serves a directory and opens it in your browser",
		Long: `Glimpse is a tiny launcher for static sites: it serves a directory
over HTTP, opens your default browser at it, and can live reload the
page when files change.

Run it with no arguments to serve the directory the binary lives in.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			manager := config.NewManager()

			path := configFile
			explicit := path != ""
			if !explicit {
				path = config.FindConfigFile()
			}

			_, err := manager.Load(config.DefaultSources(path, explicit, cmd.Flags(), debug)...)
			if err != nil {
				wrapped := serversvc.WrapInvalidConfig(err)
				_ = format.FromCommand(cmd).PrintTotalFailureSummary("load configuration", wrapped, serversvc.ErrorCode(wrapped))
				return wrapped
			}

			cfg := manager.Get()
			level := logging.LevelFromVerbosity(verbosityCount, logging.ParseLogLevel(cfg.Log.Level))
			if err := logging.ConfigureGlobalLogging(level.String(), cfg.Log.Format, cfg.Log.File); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			ctx := appctx.WithConfig(cmd.Context(), manager)
			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
		// Bare invocation serves, the same as the serve subcommand. Flags
		// specific to serve are only registered there; runServe tolerates
		// their absence.
		RunE: runServe,
	}

	cmd.SilenceUsage = true
	// Failures are printed by the formatter with suggestions attached, so
	// cobra's own error echo would duplicate them.
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")
	cmd.PersistentFlags().String("output", "table", "Output format (table, json)")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newOpenCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}
