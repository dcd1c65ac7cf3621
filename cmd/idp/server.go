package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/platform-labs/deviceauth/internal/csrf"
	"github.com/platform-labs/deviceauth/internal/deviceflow"
	"github.com/platform-labs/deviceauth/internal/templates"
	"github.com/platform-labs/deviceauth/internal/token"
)

type server struct {
	cfg       Config
	router    *chi.Mux
	flow      *deviceflow.Flow
	codec     *token.Codec
	templates *templates.Templates
	csrf      *csrf.Manager
	logger    zerolog.Logger
}

func newServer(cfg Config, flow *deviceflow.Flow, codec *token.Codec, csrfManager *csrf.Manager, logger zerolog.Logger) (*server, error) {
	tmpls, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	srv := &server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		flow:      flow,
		codec:     codec,
		templates: tmpls,
		csrf:      csrfManager,
		logger:    logger,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(srv.logRequests)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.Timeout(30 * time.Second))

	srv.routes()

	return srv, nil
}

func (s *server) routes() {
	s.router.Get("/health", s.handleHealth())

	// Device flow endpoints
	s.router.Post("/device/code", s.handleDeviceCode())
	s.router.Post("/oauth/token", s.handleToken())

	// Browser activation
	s.router.Get("/activate", s.handleActivateForm())
	s.router.Post("/activate", s.handleActivate())
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
