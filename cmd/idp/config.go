package main

import "time"

// Config holds identity provider configuration loaded from environment variables
type Config struct {
	Port    int    `envconfig:"PORT" default:"8081"`
	BaseURL string `envconfig:"BASE_URL" default:"http://127.0.0.1:8081"`

	// SigningSecret is shared with the platform API for token verification
	SigningSecret string `envconfig:"SIGNING_SECRET" default:"demo-secret-change-me"`
	CSRFSecret    string `envconfig:"CSRF_SECRET" default:"demo-csrf-change-me"`

	TokenAudience string        `envconfig:"TOKEN_AUDIENCE" default:"cnpe-platform-api"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"5m"`

	CodeExpiry       time.Duration `envconfig:"CODE_EXPIRY" default:"10m"`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	SessionRetention time.Duration `envconfig:"SESSION_RETENTION" default:"10m"`
	CSRFTokenExpiry  time.Duration `envconfig:"CSRF_TOKEN_EXPIRY" default:"15m"`

	// RedisURL selects the Redis session store; empty runs in-memory
	RedisURL string `envconfig:"REDIS_URL"`

	// Activation form defaults
	DefaultSubject string   `envconfig:"DEFAULT_SUBJECT" default:"ajay"`
	Teams          []string `envconfig:"TEAMS" default:"platform-team,payments-team,guest"`

	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
}
