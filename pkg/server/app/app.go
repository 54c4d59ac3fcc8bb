package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/glimpse-dev/glimpse/pkg/config"
	"github.com/glimpse-dev/glimpse/pkg/reload"
	"github.com/glimpse-dev/glimpse/pkg/server"
	"github.com/glimpse-dev/glimpse/pkg/server/httpx"
	"github.com/glimpse-dev/glimpse/pkg/state"
	"github.com/glimpse-dev/glimpse/pkg/static"
)

// App orchestrates the launcher runtime components:
// - HTTP server (static site, health, reload endpoints)
// - File watcher and reload hub (when live reload is enabled)
// - Instance record and browser opening
type App struct {
	HTTP    *http.Server
	Hub     *reload.Hub
	Watcher *reload.Watcher
	Ready   *atomic.Bool
	Config  config.Config
	Deps    *Deps

	listener net.Listener
	port     int
	url      string
	dir      string
	openOnce sync.Once
}

// New creates and configures a new launcher application serving dir.
//
// The listen socket is bound here rather than in Run so a busy port
// fails before any banner is printed or instance state recorded.
func New(ctx context.Context, cfg config.Config, dir string, deps *Deps) (*App, error) {
	deps.Logger.Info().Str("dir", dir).Msg("Initializing server application")

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, server.NewDirUnavailableError(dir)
	}

	// Live reload pipeline: watcher feeds the hub, the hub pushes to
	// connected pages, and served HTML gets the client script injected.
	var (
		hub      *reload.Hub
		watcher  *reload.Watcher
		injector func([]byte) []byte
	)
	if cfg.Reload.Enabled {
		hub = reload.NewHub(reload.DefaultHubOptions(), deps.Logger)
		watcher, err = reload.NewWatcher(dir, cfg.Reload, hub.NotifyReload, deps.Logger)
		if err != nil {
			hub.Close()
			return nil, server.WrapAppInit(fmt.Errorf("create file watcher: %w", err))
		}
		injector = reload.InjectScript
	}

	site := static.NewHandler(cfg.Server, dir, injector)
	router := httpx.NewRouter(site, hub)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Addr, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if hub != nil {
			hub.Close()
		}
		if watcher != nil {
			_ = watcher.Close()
		}
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, server.WrapPortInUse(err, cfg.Server.Port)
		}
		return nil, server.WrapAppInit(err)
	}

	port := cfg.Server.Port
	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      httpx.Chain(cfg.Server, router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		HTTP:     httpServer,
		Hub:      hub,
		Watcher:  watcher,
		Ready:    &atomic.Bool{},
		Config:   cfg,
		Deps:     deps,
		listener: listener,
		port:     port,
		url:      serverURL(cfg.Server.Addr, port),
		dir:      dir,
	}, nil
}

// URL returns the browsable address of the server, ending in a slash.
func (a *App) URL() string {
	return a.url
}

// Port returns the bound port, resolved even when configured as 0.
func (a *App) Port() int {
	return a.port
}

// Dir returns the directory being served.
func (a *App) Dir() string {
	return a.dir
}

// Run starts the server and blocks until ctx is canceled or the server
// fails.
func (a *App) Run(ctx context.Context) error {
	a.Deps.Logger.Info().
		Str("addr", a.HTTP.Addr).
		Str("url", a.url).
		Str("dir", a.dir).
		Bool("reload", a.Config.Reload.Enabled).
		Msg("Starting glimpse server")

	// Start HTTP server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := a.HTTP.Serve(a.listener); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	// Start the file watcher
	if a.Watcher != nil {
		go func() {
			if err := a.Watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Deps.Logger.Warn().Err(err).Msg("File watcher stopped")
			}
		}()
	}

	a.recordInstance(ctx)

	// Open the browser once per launch, detached from the serve loop so
	// a wedged launcher cannot stall the server.
	if a.Config.Browser.Open && a.Deps.Opener != nil {
		a.openOnce.Do(func() {
			go a.Deps.Opener.OpenAfter(ctx, a.Config.Browser.Delay, a.url)
		})
	}

	// Mark as ready
	a.Ready.Store(true)
	a.Deps.Logger.Info().Str("url", a.url).Msg("Server is ready and accepting connections")

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		a.Deps.Logger.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		a.Deps.Logger.Error().Err(err).Msg("Server error")
		return server.WrapRuntime(err)
	}

	// Graceful shutdown
	return a.shutdown()
}

// Close releases the listener and reload components without serving.
// Run performs its own shutdown; Close covers error paths between New
// and Run.
func (a *App) Close() error {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Watcher != nil {
		_ = a.Watcher.Close()
	}
	return a.listener.Close()
}

// recordInstance persists the running instance for glimpse open. Failure
// is logged, not fatal: serving matters more than discoverability.
func (a *App) recordInstance(ctx context.Context) {
	if a.Deps.Store == nil {
		return
	}
	inst := state.Instance{
		PID:       os.Getpid(),
		Port:      a.port,
		URL:       a.url,
		Dir:       a.dir,
		StartedAt: time.Now().UTC(),
	}
	if err := a.Deps.Store.Write(ctx, inst); err != nil {
		a.Deps.Logger.Warn().Err(err).Msg("Could not record instance state")
	}
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.Deps.Logger.Info().Msg("Initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Mark as not ready
	a.Ready.Store(false)

	// Shutdown HTTP server. Websocket connections are hijacked and not
	// tracked by Shutdown; the hub closes them right after.
	a.Deps.Logger.Info().Msg("Shutting down HTTP server...")
	if err := a.HTTP.Shutdown(shutdownCtx); err != nil {
		a.Deps.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
		return err
	}
	a.Deps.Logger.Info().Msg("HTTP server stopped")

	// Close live reload connections
	if a.Hub != nil {
		a.Deps.Logger.Info().Msg("Closing live reload connections...")
		a.Hub.Close()
	}

	// Drop the instance record
	if a.Deps.Store != nil {
		if err := a.Deps.Store.Remove(shutdownCtx); err != nil {
			a.Deps.Logger.Warn().Err(err).Msg("Could not remove instance state")
		}
	}

	a.Deps.Logger.Info().Msg("Server shutdown complete")
	return nil
}

// serverURL derives the address to open in the browser. A wildcard bind
// still yields a localhost URL because that is what the host can reach.
func serverURL(host string, port int) string {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}
