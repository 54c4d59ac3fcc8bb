package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/glimpse-dev/glimpse/cmd/glimpse/internal/format"
	"github.com/glimpse-dev/glimpse/pkg/browser"
	serversvc "github.com/glimpse-dev/glimpse/pkg/server"
	"github.com/glimpse-dev/glimpse/pkg/state"
)

const opOpen = "open browser"

// openBrowser launches the default browser. Tests swap it out.
var openBrowser = browser.Open

// newOpenCommand creates and returns the 'glimpse open' command.
//
// It reads the instance record written by a running serve, probes the
// recorded address to make sure the server is still alive, and opens the
// default browser at it. A record whose server no longer answers is
// removed so the next invocation reports a clean miss.
func newOpenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open the browser at the running server",
		Long: `Open the default browser at the address of the running glimpse server.

The serve command records where it listens; open looks that record up,
checks the server still answers, and points the browser at it. Useful
after closing the tab without stopping the server.`,
		Args: cobra.NoArgs,
		RunE: runOpen,
	}

	cmd.Flags().Duration("timeout", 2*time.Second, "How long to wait for the server health probe")

	return cmd
}

func runOpen(cmd *cobra.Command, _ []string) error {
	formatter := format.FromCommand(cmd)

	store, err := state.NewStore()
	if err != nil {
		wrapped := serversvc.WrapAppInit(err)
		_ = formatter.PrintTotalFailureSummary(opOpen, wrapped, serversvc.ErrorCode(wrapped))
		return wrapped
	}

	inst, err := store.Read(cmd.Context())
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			err = serversvc.NewNoInstanceError()
		} else {
			err = serversvc.WrapRuntime(err)
		}
		_ = formatter.PrintTotalFailureSummary(opOpen, err, serversvc.ErrorCode(err))
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if err := probeInstance(cmd.Context(), inst.URL, timeout); err != nil {
		// The record outlived its server. Drop it so the next open is a
		// clean miss instead of another failed probe.
		_ = store.Remove(cmd.Context())
		stale := serversvc.NewStaleInstanceError(inst.URL)
		_ = formatter.PrintTotalFailureSummary(opOpen, stale, serversvc.ErrorCode(stale))
		return stale
	}

	if err := openBrowser(inst.URL); err != nil {
		wrapped := serversvc.WrapRuntime(err)
		_ = formatter.PrintTotalFailureSummary(opOpen, wrapped, serversvc.ErrorCode(wrapped))
		return wrapped
	}

	_ = formatter.PrintSuccessSummary("opened", inst.URL)
	return nil
}

// probeInstance checks that the recorded server still answers its health
// endpoint.
func probeInstance(ctx context.Context, url string, timeout time.Duration) error {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := strings.TrimSuffix(url, "/") + "/healthz"
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}
	return nil
}
