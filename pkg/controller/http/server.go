package http

import (
	"net/http"
	"time"

	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultConsolidationTimeout = 5 * time.Minute

type Server struct {
	router               *chi.Mux
	uc                   *usecase.UseCases
	metricsHandler       http.Handler
	consolidationTimeout time.Duration
}

type Options func(*Server)

// WithMetricsHandler exposes h on /metrics
func WithMetricsHandler(h http.Handler) Options {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithConsolidationTimeout bounds consolidation runs triggered over HTTP
func WithConsolidationTimeout(d time.Duration) Options {
	return func(s *Server) {
		s.consolidationTimeout = d
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:               r,
		uc:                   uc,
		consolidationTimeout: defaultConsolidationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	r.Route("/api/children/{childID}", func(r chi.Router) {
		r.Post("/turns", s.formMemoriesHandler)
		r.Get("/memories", s.retrieveHandler)
		r.Get("/context", s.childContextHandler)
		r.Post("/consolidate", s.consolidateHandler)
		r.Post("/prompt", s.promptHandler)
		r.Get("/tools", s.listToolsHandler)
		r.Post("/tools/{toolName}", s.runToolHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// requestLogger binds a logger carrying the request ID to the request context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.Default()
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger = logger.With("request_id", id)
		}
		ctx := logging.With(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
