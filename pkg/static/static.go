package static

import (
	"bytes"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/glimpse-dev/glimpse/pkg/config"
	"github.com/glimpse-dev/glimpse/pkg/logging"
)

// Handler serves files from a directory with the semantics of
// http.FileServer: platform MIME table, index.html for directory
// requests, automatic listings, 404 for anything missing. The knobs in
// config.ServerConfig layer on top of that baseline without changing it
// when they are off.
type Handler struct {
	cfg   config.ServerConfig
	root  http.Dir
	files http.Handler

	// injector rewrites HTML payloads before they go out. Set only when
	// live reload is active; nil means files are served byte for byte.
	injector func([]byte) []byte

	log zerolog.Logger
}

// NewHandler creates a file-serving handler rooted at dir.
func NewHandler(cfg config.ServerConfig, dir string, injector func([]byte) []byte) *Handler {
	logger := logging.NewLogger("static", zerolog.GlobalLevel())

	for ext, typ := range cfg.MIME {
		if typ == "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			logger.Warn().Err(err).Str("extension", ext).Msg("skipping MIME registration")
		}
	}

	root := http.Dir(dir)
	var fsys http.FileSystem = root
	if !cfg.Listing {
		fsys = noListingFileSystem{root}
	}

	return &Handler{
		cfg:      cfg,
		root:     root,
		files:    http.FileServer(fsys),
		injector: injector,
		log:      logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.cfg.NoCache {
		// Dev server semantics: the browser must re-fetch after every edit.
		w.Header().Set("Cache-Control", "no-store")
	}

	if h.cfg.SPA && h.isFallbackRoute(r.URL.Path) {
		r.URL.Path = "/"
	}

	if h.injector != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		if h.serveInjectedHTML(w, r) {
			return
		}
	}

	h.files.ServeHTTP(w, r)
}

// isFallbackRoute reports whether a path should be rewritten to the root
// index for client-side routing: extensionless, not the root itself, and
// not backed by a real file or directory.
func (h *Handler) isFallbackRoute(upath string) bool {
	if upath == "/" || path.Ext(upath) != "" {
		return false
	}
	f, err := h.root.Open(path.Clean(upath))
	if err != nil {
		return true
	}
	_ = f.Close()
	return false
}

// serveInjectedHTML serves HTML files with the injector applied, keeping
// http.FileServer semantics for everything else. Returns false when the
// request is not for an HTML payload, including the trailing-slash
// redirect for bare directory paths, which stays with the file server.
func (h *Handler) serveInjectedHTML(w http.ResponseWriter, r *http.Request) bool {
	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
	}
	hadSlash := strings.HasSuffix(upath, "/")
	upath = path.Clean(upath)

	name := upath
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return false
	}

	if info.IsDir() {
		_ = f.Close()
		if !hadSlash {
			return false
		}
		name = path.Join(upath, "index.html")
		if f, err = h.root.Open(name); err != nil {
			return false
		}
		if info, err = f.Stat(); err != nil || info.IsDir() {
			_ = f.Close()
			return false
		}
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
	default:
		_ = f.Close()
		return false
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		h.log.Warn().Err(err).Str("path", name).Msg("reading file for script injection failed")
		return false
	}

	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(h.injector(data)))
	return true
}

// noListingFileSystem hides directories that have no index.html, turning
// the auto-generated listing into a 404.
type noListingFileSystem struct {
	fs http.FileSystem
}

func (nfs noListingFileSystem) Open(name string) (http.File, error) {
	f, err := nfs.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if info.IsDir() {
		index := strings.TrimSuffix(name, "/") + "/index.html"
		idx, err := nfs.fs.Open(index)
		if err != nil {
			_ = f.Close()
			return nil, fs.ErrNotExist
		}
		_ = idx.Close()
	}

	return f, nil
}
