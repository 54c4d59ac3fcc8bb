package httpx

import (
	"net/http"

	"github.com/glimpse-dev/glimpse/pkg/reload"
)

// NewRouter creates and configures the main HTTP router.
// It mounts the health endpoint, the optional live reload endpoints, and
// the site handler at the root.
//
// The router uses Go 1.22+ enhanced pattern matching for cleaner routes.
// Explicit patterns win over the root mount, so /healthz and the reload
// paths shadow files of the same name in the served directory.
func NewRouter(site http.Handler, hub *reload.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// Health endpoint (always enabled). glimpse open probes it to tell a
	// live instance from a stale state record.
	mux.HandleFunc("GET /healthz", HealthzHandler)

	// Live reload endpoints (only when a hub is running)
	if hub != nil {
		mux.Handle("GET "+reload.SocketPath, hub)
		mux.Handle("GET "+reload.ScriptPath, reload.ScriptHandler())
	}

	mux.Handle("/", site)

	return mux
}

// HealthzHandler responds with 200 OK if the server process is alive.
//
// It does not inspect the served directory or reload pipeline - just
// process health.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
