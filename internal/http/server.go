// Package http exposes the report generator as a JSON API behind a chi
// router. All report routes trust the actor identity forwarded by the
// upstream gateway and require the admin role.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"claimdesk/internal/log"
	"claimdesk/internal/report"
)

const defaultQueryTimeout = 15 * time.Second

type Server struct {
	http.Server

	gen          *report.Generator
	logger       *log.Logger
	queryTimeout time.Duration
	ready        func(context.Context) error

	now func() time.Time
}

// Options carries the optional knobs for NewServer.
type Options struct {
	AllowedOrigins []string
	QueryTimeout   time.Duration
	// Ready is polled by /readyz; nil means always ready.
	Ready  func(context.Context) error
	Logger *log.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, gen *report.Generator, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	s := &Server{
		gen:          gen,
		logger:       logger,
		queryTimeout: queryTimeout,
		ready:        opts.Ready,
		now:          time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Actor-Id", "X-Actor-Name", "X-Actor-Role"},
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/reports", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/summary", s.handleSummary)
		r.Get("/monthly", s.handleMonthly)
		r.Get("/export", s.handleExport)
	})

	s.Server = http.Server{
		Addr:    addr,
		Handler: r,
	}

	return s
}

// queryContext bounds one report generation so a slow store cannot hold a
// request open indefinitely.
func (s *Server) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// requestLogger logs request start and completion with the chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		s.logger.InfoContext(ctx, "Request started",
			"request_id", middleware.GetReqID(ctx),
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP(r),
			"user_agent", r.UserAgent())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			"request_id", middleware.GetReqID(ctx),
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// clientIP extracts the caller address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
