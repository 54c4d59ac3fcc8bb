package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/glimpse-dev/glimpse/pkg/config"
	"github.com/glimpse-dev/glimpse/pkg/state"
)

// Opener launches the user's browser at a URL after a delay.
// *browser.Opener satisfies it; tests substitute a recorder.
type Opener interface {
	OpenAfter(ctx context.Context, delay time.Duration, url string)
}

// Deps holds dependencies for the launcher application.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Store records the running instance so glimpse open can find it.
	// Optional; nil disables instance tracking.
	Store *state.Store

	// Opener opens the default browser once the server is ready.
	// Optional; nil disables opening regardless of configuration.
	Opener Opener

	// Config manager for runtime configuration
	Config *config.Manager

	// Logger for structured logging (injected by caller)
	Logger zerolog.Logger
}
