// Package main implements the demo identity provider: device code issuance,
// browser activation and signed token minting.
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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/platform-labs/deviceauth/internal/csrf"
	"github.com/platform-labs/deviceauth/internal/deviceflow"
	"github.com/platform-labs/deviceauth/internal/token"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "idp").Logger()

	var cfg Config
	if err := envconfig.Process("IDP", &cfg); err != nil {
		logger.Fatal().Err(err).Msg("loading configuration")
	}

	// Pick the session store: Redis when configured, in-process otherwise
	var (
		store     deviceflow.Store
		csrfStore csrf.Store
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parsing redis URL")
		}
		redisClient := redis.NewClient(redisOpts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("closing redis connection")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("connecting to redis")
		}

		store = deviceflow.NewRedisStore(redisClient, deviceflow.WithRedisRetention(cfg.SessionRetention))
		csrfStore = csrf.NewRedisStore(redisClient)
		logger.Info().Msg("using redis session store")
	} else {
		memStore := deviceflow.NewMemoryStore(deviceflow.WithRetention(cfg.SessionRetention))
		defer memStore.Close()
		store = memStore
		csrfStore = csrf.NewMemoryStore()
		logger.Info().Msg("using in-memory session store")
	}

	flow := deviceflow.NewFlow(store, cfg.BaseURL,
		deviceflow.WithCodeExpiry(cfg.CodeExpiry),
		deviceflow.WithPollInterval(cfg.PollInterval),
	)

	codec := token.New([]byte(cfg.SigningSecret), cfg.TokenAudience,
		token.WithIssuer(cfg.BaseURL),
		token.WithTTL(cfg.TokenTTL),
	)

	csrfManager := csrf.NewManager(csrfStore, []byte(cfg.CSRFSecret), cfg.CSRFTokenExpiry)

	srv, err := newServer(cfg, flow, codec, csrfManager, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating server")
	}

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
		logger.Info().Int("port", cfg.Port).Str("base_url", cfg.BaseURL).Msg("identity provider listening")
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
