package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glimpse-dev/glimpse/cmd/glimpse/internal/format"
	"github.com/glimpse-dev/glimpse/pkg/config"
	"github.com/glimpse-dev/glimpse/pkg/logging"
	serversvc "github.com/glimpse-dev/glimpse/pkg/server"
)

const opInit = "scaffold project"

const configHeader = `# glimpse project configuration
# Every key is optional; missing keys fall back to built-in defaults.
#
# Pin the glimpse version this project expects:
# requires: ">= 0.1"

`

const starterPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>My glimpse site</title>
  <style>
    body { font-family: system-ui, sans-serif; display: grid; place-items: center; min-height: 100vh; margin: 0; }
    main { text-align: center; }
    code { background: #f2f2f2; padding: 0.2em 0.4em; border-radius: 4px; }
  </style>
</head>
<body>
  <main>
    <h1>It works!</h1>
    <p>Edit <code>index.html</code> and run <code>glimpse serve --reload</code> to see changes live.</p>
  </main>
</body>
</html>
`

// newInitCommand creates and returns the 'glimpse init' command.
//
// It scaffolds a minimal project: a glimpse.yaml with the common knobs
// spelled out and a starter index.html. Existing files are never
// overwritten unless --force is given.
func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a glimpse project",
		Long: `Scaffold a glimpse project in the given directory (default: current).

Writes a commented glimpse.yaml and a starter index.html so that
"glimpse serve" works immediately afterwards.`,
		Args: cobra.MaximumNArgs(1),
		// init must work even when the config file in the target directory
		// is the thing being repaired, so it skips the usual config load.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.ConfigureGlobalLogging("info", "text", "")
		},
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite existing files")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	formatter := format.FromCommand(cmd)

	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	dir, err := filepath.Abs(target)
	if err != nil {
		wrapped := serversvc.WrapAppInit(err)
		_ = formatter.PrintTotalFailureSummary(opInit, wrapped, serversvc.ErrorCode(wrapped))
		return wrapped
	}

	force, _ := cmd.Flags().GetBool("force")
	if err := scaffold(dir, force); err != nil {
		_ = formatter.PrintTotalFailureSummary(opInit, err, serversvc.ErrorCode(err))
		return err
	}

	_ = formatter.PrintSuccessSummary("scaffolded", dir)
	return nil
}

// scaffold writes the project files into dir, holding a file lock so two
// concurrent inits cannot interleave partial writes.
func scaffold(dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return serversvc.WrapAppInit(fmt.Errorf("create project directory: %w", err))
	}

	lockPath := filepath.Join(dir, ".glimpse.init.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return serversvc.WrapAppInit(fmt.Errorf("lock project directory: %w", err))
	}
	if !locked {
		return serversvc.WrapAppInit(errors.New("another glimpse init is running in this directory"))
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	configBody, err := renderConfig()
	if err != nil {
		return serversvc.WrapAppInit(err)
	}

	files := map[string][]byte{
		config.FileName: configBody,
		"index.html":    []byte(starterPage),
	}

	// Check for collisions before touching anything so a refusal leaves
	// the directory exactly as it was.
	if !force {
		var conflicts []string
		for name := range files {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				conflicts = append(conflicts, name)
			}
		}
		if len(conflicts) > 0 {
			sort.Strings(conflicts)
			return serversvc.WrapAppInit(fmt.Errorf("refusing to overwrite %s (use --force)", strings.Join(conflicts, ", ")))
		}
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			return serversvc.WrapAppInit(fmt.Errorf("write %s: %w", name, err))
		}
	}

	return nil
}

// renderConfig produces the scaffolded glimpse.yaml. The document is built
// from an explicit key map rather than marshalling Config directly, so the
// emitted keys match the koanf paths the loader expects.
func renderConfig() ([]byte, error) {
	defaults := config.DefaultConfig()

	doc := map[string]any{
		"server": map[string]any{
			"port":    defaults.Server.Port,
			"listing": defaults.Server.Listing,
			"spa":     defaults.Server.SPA,
		},
		"browser": map[string]any{
			"open":  defaults.Browser.Open,
			"delay": defaults.Browser.Delay.String(),
		},
		"reload": map[string]any{
			"enabled":  true,
			"debounce": defaults.Reload.Debounce.String(),
		},
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", config.FileName, err)
	}

	return append([]byte(configHeader), body...), nil
}
