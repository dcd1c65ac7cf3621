package main

import "time"

// Config holds resource server configuration loaded from environment variables
type Config struct {
	Port int `envconfig:"PORT" default:"8082"`

	// SigningSecret is shared with the identity provider
	SigningSecret string `envconfig:"SIGNING_SECRET" default:"demo-secret-change-me"`

	// TokenAudience is the identifier tokens must be addressed to
	TokenAudience string `envconfig:"TOKEN_AUDIENCE" default:"cnpe-platform-api"`

	// RequiredTeam is the team claim granted access to the platform resource
	RequiredTeam string `envconfig:"REQUIRED_TEAM" default:"platform-team"`

	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
}
