package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/platform-labs/deviceauth/internal/token"
)

type contextKey string

const claimsKey contextKey = "claims"

// Health check handler
func (s *server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// authenticate verifies the bearer credential and stores the claims on the
// request context. A missing credential is reported distinctly from an
// invalid one.
func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing_bearer_token"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		claims, err := s.codec.DecodeAndVerify(tokenString)
		if err != nil {
			s.logger.Info().Err(err).Msg("token rejected")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":  "invalid_token",
				"detail": authFailureDetail(err),
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// handleResource applies the authorization rule and serves the resource.
// The team equality check stands in for a real policy engine.
func (s *server) handleResource() http.HandlerFunc {
	type resourceResponse struct {
		Message string `json:"message"`
		Subject string `json:"sub"`
		Team    string `json:"team"`
		Issuer  string `json:"iss"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value(claimsKey).(*token.Claims)

		if claims.Team != s.cfg.RequiredTeam {
			s.logger.Info().
				Str("sub", claims.Subject).
				Str("team", claims.Team).
				Msg("access denied")
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":       "forbidden",
				"needed_team": s.cfg.RequiredTeam,
				"your_team":   claims.Team,
			})
			return
		}

		writeJSON(w, http.StatusOK, resourceResponse{
			Message: "Access granted to platform resource",
			Subject: claims.Subject,
			Team:    claims.Team,
			Issuer:  claims.Issuer,
		})
	}
}

// authFailureDetail maps verification failures to short, stable detail strings
func authFailureDetail(err error) string {
	switch {
	case errors.Is(err, token.ErrMalformedToken):
		return "malformed token"
	case errors.Is(err, token.ErrInvalidSignature):
		return "invalid signature"
	case errors.Is(err, token.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, token.ErrAudienceMismatch):
		return "audience mismatch"
	default:
		return "verification failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
