// Package browser opens URLs in the user's default web browser.
//
// Opening the browser is a convenience, never a requirement: every failure
// is reported back or logged, and the caller is expected to keep serving
// regardless. The URL stays printed on the console as the fallback.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/glimpse-dev/glimpse/pkg/logging"
)

// ErrNoDisplay is returned on unix systems without a graphical session.
var ErrNoDisplay = errors.New("no graphical display detected")

// Opener launches URLs with the platform's default handler.
type Opener struct {
	goos       string
	run        func(name string, arg ...string) error
	hasDisplay func() bool
	log        zerolog.Logger
}

// New returns an Opener for the current platform.
func New() *Opener {
	return &Opener{
		goos:       runtime.GOOS,
		run:        startCommand,
		hasDisplay: hasDisplay,
		log:        logging.NewLogger("browser", zerolog.GlobalLevel()),
	}
}

func startCommand(name string, arg ...string) error {
	// Start, not Run: the browser process outlives us and we never wait on it.
	return exec.Command(name, arg...).Start()
}

// hasDisplay reports whether a graphical session is reachable. Only
// meaningful on unix; windows and darwin always have a default handler.
func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// command returns the platform launcher invocation for url.
func command(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

// Open launches url in the default browser and returns without waiting
// for the browser to exit.
func (o *Opener) Open(url string) error {
	if o.goos != "windows" && o.goos != "darwin" && !o.hasDisplay() {
		return ErrNoDisplay
	}

	name, args := command(o.goos, url)
	if err := o.run(name, args...); err != nil {
		return fmt.Errorf("launching browser with %s: %w", name, err)
	}
	return nil
}

// OpenAfter opens url once the delay has elapsed, unless ctx is canceled
// first. The delay gives the HTTP listener a moment to come up so the
// first page load does not race the server. Failures are logged and
// swallowed; the serve loop must not care.
func (o *Opener) OpenAfter(ctx context.Context, delay time.Duration, url string) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if err := o.Open(url); err != nil {
		o.log.Debug().Err(err).Str("url", url).Msg("could not open browser")
		return
	}
	o.log.Info().Str("url", url).Msg("opened browser")
}

// Open launches url using a default Opener.
func Open(url string) error {
	return New().Open(url)
}
