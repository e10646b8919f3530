package app

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Server is the schedule board HTTP server
type Server struct {
	router    chi.Router
	store     Store
	cfg       Config
	log       zerolog.Logger
	static    fs.FS
	indexHTML []byte
	now       func() time.Time
	startTime time.Time
}

// Option configures optional Server dependencies
type Option func(*Server)

// WithAssets sets the embedded static files and the index page
func WithAssets(static fs.FS, indexHTML []byte) Option {
	return func(s *Server) {
		s.static = static
		s.indexHTML = indexHTML
	}
}

// WithClock overrides the time source (used by "today" and exports)
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a Server with all routes registered
func NewServer(cfg Config, st Store, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     st,
		cfg:       cfg,
		log:       log.With().Str("component", "server").Logger(),
		now:       time.Now,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.log))

	r.Get("/", s.ServeIndex)
	if s.static != nil {
		r.Handle("/static/*", http.FileServer(http.FS(s.static)))
	}

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit.RequestsPerSecond > 0 {
			r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(s.cfg.RateLimit.RequestsPerSecond), s.cfg.RateLimit.Burst)))
		}

		r.Get("/health", s.HandleHealth)
		r.Get("/categories", s.HandleCategories)
		r.Get("/today", s.HandleToday)
		r.Get("/calendar", s.HandleCalendar)
		r.Get("/export", s.HandleExport)

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.HandleListSchedules)
			r.Post("/", s.HandleAddSchedule)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.HandleDeleteSchedule)
				r.Post("/complete", s.HandleCompleteSchedule)
			})
		})

		r.Get("/timetable", s.HandleGetTimetable)
		r.Put("/timetable", s.HandlePutTimetable)
	})
}

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// requestIDMiddleware generates a request id and stores it in the context
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := "req_" + uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs each request with method, path, status and duration
func loggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Str("request_id", RequestIDFromContext(r.Context())).
				Msg("request")
		})
	}
}

// rateLimitMiddleware rejects requests beyond the limiter's rate with 429
func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter captures the response status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
