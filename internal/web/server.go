// Package web provides the HTTP API over the reconciled catalog.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalogrecon/internal/config"
	"github.com/JonMunkholm/catalogrecon/internal/core"
	"github.com/JonMunkholm/catalogrecon/internal/ingest"
	"github.com/JonMunkholm/catalogrecon/internal/logging"
	"github.com/JonMunkholm/catalogrecon/internal/metrics"
	mw "github.com/JonMunkholm/catalogrecon/internal/web/middleware"
)

// sessionSweepInterval is how often idle filter sessions are evicted.
const sessionSweepInterval = time.Minute

// Server is the HTTP server for the reconciliation API.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	metrics  *metrics.Registry
	limiter  *ingest.Limiter
	staged   *stagedSources
	sessions *sessionStore

	// reconcileMu orders every staging change with the pass that makes it
	// current, so a slower pass over an older staged set never wins.
	reconcileMu sync.Mutex

	router   *chi.Mux
	server   *http.Server

	stop     context.CancelFunc
	stopOnce sync.Once
}

// NewServer creates a new Server instance. A nil registry disables /metrics.
func NewServer(cfg *config.Config, service *core.Service, reg *metrics.Registry, limiter *ingest.Limiter) *Server {
	if limiter == nil {
		limiter = ingest.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	var onSessions func(int)
	if reg != nil {
		onSessions = reg.SetSessions
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		service:  service,
		metrics:  reg,
		limiter:  limiter,
		staged:   newStagedSources(),
		sessions: newSessionStore(cfg.Session.IdleTimeout, cfg.Session.MaxSessions, onSessions),
		router:   chi.NewRouter(),
		stop:     cancel,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	go s.sessions.Sweep(ctx, sessionSweepInterval)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.RequestLogger(s.currentSnapshotID))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security, mw.ScopeRead))

		// Sources
		r.Get("/sources", s.handleListSources)
		r.Group(func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security, mw.ScopeSources))
			if s.cfg.Rate.Enabled && s.cfg.Rate.UploadLimit > 0 {
				r.Use(newRateLimiter(ctx, s.cfg.Rate.UploadLimit, time.Minute).middleware)
			}
			r.Put("/sources/{kind}", s.handlePutSource)
			r.Delete("/sources/{kind}", s.handleDeleteSource)
		})
		r.Get("/snapshot", s.handleSnapshot)

		// Categories
		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{category}/attributes", s.handleAttributes)

		// Filter sessions
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleEvaluateSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/category", s.handleSetCategory)
			r.Put("/extra", s.handleSetExtra)
			r.Put("/stock", s.handleSetStock)
			r.Delete("/filters", s.handleClearFilters)
			r.Put("/filters/{attribute}", s.handlePutFilter)
			r.Delete("/filters/{attribute}", s.handleDeleteFilter)
			r.Get("/export", s.handleExportSession)
		})

		// Brand and reference search
		r.Get("/search", s.handleSearch)
		r.Get("/search/export", s.handleExportSearch)
		r.Get("/brands", s.handleBrands)
		r.Get("/brands/rank", s.handleRankBrands)

		// Applications
		r.Get("/applications", s.handleApplications)
		r.Get("/applications/export", s.handleExportApplications)

		// Exclusivity
		r.Get("/exclusive/{a}/{b}", s.handleExclusive)
		r.Get("/exclusive/{a}/{b}/export", s.handleExportExclusive)
	})
}

// Stage replaces every staged source and reconciles them. Used to preload
// sources from a manifest at startup.
func (s *Server) Stage(ctx context.Context, src core.Sources) (*core.Snapshot, error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()
	s.staged.Replace(src)
	return s.service.Load(ctx, src)
}

// stageAndLoad applies a staging change and, once the required sources are
// staged, reconciles the result. A nil snapshot with a nil error means a
// required source is still missing.
func (s *Server) stageAndLoad(ctx context.Context, stage func() (core.Sources, error)) (core.Sources, *core.Snapshot, error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()
	src, err := stage()
	if err != nil || len(src.Missing()) > 0 {
		return src, nil, err
	}
	snap, err := s.service.Load(ctx, src)
	return src, snap, err
}

// currentSnapshotID returns the id of the current snapshot, or "".
func (s *Server) currentSnapshotID() string {
	snap, err := s.service.Snapshot()
	if err != nil {
		return ""
	}
	return snap.ID
}

// Start listens on the configured address.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.FromContext(context.Background()).Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight uploads to finish
// and stops the background sweeps.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.Close()
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.Drain(ctx)
}

// Close stops the background goroutines without touching the listener.
func (s *Server) Close() {
	s.stopOnce.Do(s.stop)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"uploads":  s.limiter.Status(),
	}
	if snap, err := s.service.Snapshot(); err == nil {
		status["snapshot"] = snap.ID
	}
	writeJSON(w, http.StatusOK, status)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// The API serves data only; nothing is allowed to load from it
			if csp {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
// Stale visitors are swept until ctx is done.
func newRateLimiter(ctx context.Context, rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

// cleanup removes stale visitor entries every window.
func (rl *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if rl.now().Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: now,
		}
		return true
	}

	// Reset tokens if window has passed
	if now.Sub(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = now
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// errRateLimited is matched by the RATE001 pattern.
type errRateLimited struct{}

func (errRateLimited) Error() string { return "rate limit exceeded" }

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr has already been resolved by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(mw.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.MapError(errRateLimited{}), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
