// Package server serves the dashboard page and its JSON API.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/config"
	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/viewcache"
	"github.com/wesm/queryview/internal/web"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server for the dashboard and REST API.
type Server struct {
	mu       sync.RWMutex
	cfg      config.Config
	store    *dataset.Store
	cache    *viewcache.Cache
	log      *zap.Logger
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
	httpSrv  *http.Server
	version  VersionInfo

	assets      fs.FS
	fileHandler http.Handler

	// handlerDelay is injected before each timeout-wrapped
	// handler. Tests use it to exceed a short timeout; zero in
	// production.
	handlerDelay time.Duration
}

// New creates a Server. The store may be empty; handlers answer
// with no_data until the first successful load.
func New(
	cfg config.Config, store *dataset.Store, cache *viewcache.Cache,
	opts ...Option,
) (*Server, error) {
	assets, err := web.Assets()
	if err != nil {
		return nil, fmt.Errorf("embedded frontend not found: %w", err)
	}
	if cache == nil {
		cache = viewcache.New(cfg.CacheSize, nil)
	}

	s := &Server{
		cfg:         cfg,
		store:       store,
		cache:       cache,
		log:         zap.NewNop(),
		gatherer:    prometheus.DefaultGatherer,
		mux:         http.NewServeMux(),
		assets:      assets,
		fileHandler: http.FileServerFS(assets),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s, nil
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger sets the request and error logger. Nil is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithGatherer sets the registry exposed on /metrics. Nil is
// ignored.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

func (s *Server) routes() {
	s.mux.Handle("GET /api/v1/dataset", s.withTimeout(s.handleGetDataset))
	s.mux.Handle("GET /api/v1/dataset/rows", s.withTimeout(s.handleListRows))
	s.mux.Handle("GET /api/v1/summary", s.withTimeout(s.handleDatasetSummary))
	s.mux.Handle("GET /api/v1/options", s.withTimeout(s.handleOptions))
	s.mux.Handle("GET /api/v1/views", s.withTimeout(s.handleViews))
	s.mux.Handle("GET /api/v1/viewers", s.withTimeout(s.handleViewers))
	s.mux.Handle("GET /api/v1/performance", s.withTimeout(s.handlePerformance))
	s.mux.Handle("GET /api/v1/top-queries", s.withTimeout(s.handleTopQueries))
	s.mux.Handle("GET /api/v1/version", s.withTimeout(s.handleGetVersion))
	// Reload is bounded by the source, not the write timeout.
	s.mux.HandleFunc("POST /api/v1/reload", s.handleReload)

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(
		s.gatherer, promhttp.HandlerOpts{},
	))

	// Static assets are not timeout-wrapped to avoid buffering.
	s.mux.Handle("/", http.HandlerFunc(s.handleStatic))
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}
	if f, err := s.assets.Open(path); err == nil {
		f.Close()
		s.fileHandler.ServeHTTP(w, r)
		return
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	// Single page: unknown paths get the dashboard.
	r.URL.Path = "/"
	s.fileHandler.ServeHTTP(w, r)
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.RLock()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.mu.RUnlock()
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	s.log.Info("starting server", zap.String("url", "http://"+addr))
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}
