// Package main implements the demo resource server protecting the platform
// resource behind bearer token authentication and a team check.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/platform-labs/deviceauth/internal/token"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "platform-api").Logger()

	var cfg Config
	if err := envconfig.Process("API", &cfg); err != nil {
		logger.Fatal().Err(err).Msg("loading configuration")
	}

	codec := token.New([]byte(cfg.SigningSecret), cfg.TokenAudience)
	srv := newServer(cfg, codec, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("platform api listening")
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal().Err(err).Msg("server error")

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("starting shutdown")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutting down server")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("closing server")
			}
		}
	}
}
