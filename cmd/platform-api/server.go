package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/platform-labs/deviceauth/internal/token"
)

type server struct {
	cfg    Config
	router *chi.Mux
	codec  *token.Codec
	logger zerolog.Logger
}

func newServer(cfg Config, codec *token.Codec, logger zerolog.Logger) *server {
	srv := &server{
		cfg:    cfg,
		router: chi.NewRouter(),
		codec:  codec,
		logger: logger,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(srv.logRequests)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.Timeout(30 * time.Second))

	srv.routes()

	return srv
}

func (s *server) routes() {
	s.router.Get("/health", s.handleHealth())

	// Authentication happens in middleware, authorization in the handler;
	// the split keeps 401 and 403 failures distinct
	s.router.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/platform/resource", s.handleResource())
	})
}

// logRequests emits one structured log line per request
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
