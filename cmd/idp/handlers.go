package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/platform-labs/deviceauth/internal/deviceflow"
	"github.com/platform-labs/deviceauth/internal/templates"
	"github.com/platform-labs/deviceauth/internal/validation"
)

// Health check handler
func (s *server) handleHealth() http.HandlerFunc {
	type healthResponse struct {
		Status string `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK

		if err := s.flow.CheckHealth(r.Context()); err != nil {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else if err := s.csrf.CheckHealth(r.Context()); err != nil {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, resp)
	}
}

// Device code issuance handler: the CLI requests a device_code + user_code pair
func (s *server) handleDeviceCode() http.HandlerFunc {
	type deviceCodeResponse struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		Interval        int    `json:"interval"`
		ExpiresIn       int    `json:"expires_in"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.flow.RequestDeviceCode(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("issuing device code")
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		s.logger.Info().
			Str("user_code", session.UserCode).
			Time("expires_at", session.ExpiresAt).
			Msg("device code issued")

		writeJSON(w, http.StatusOK, deviceCodeResponse{
			DeviceCode:      session.DeviceCode,
			UserCode:        validation.FormatCode(session.UserCode),
			VerificationURI: s.flow.VerificationURI(),
			Interval:        s.flow.Interval(),
			ExpiresIn:       session.ExpiresIn(session.CreatedAt),
		})
	}
}

// Token exchange handler: the CLI polls until the session is approved,
// then receives a signed access token
func (s *server) handleToken() http.HandlerFunc {
	type tokenResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		deviceCode, ok := readDeviceCode(r)
		if !ok || deviceCode == "" {
			writeError(w, http.StatusBadRequest, "invalid_device_code")
			return
		}

		session, err := s.flow.CheckDeviceCode(r.Context(), deviceCode)
		if err != nil {
			switch {
			case errors.Is(err, deviceflow.ErrInvalidDeviceCode):
				writeError(w, http.StatusBadRequest, "invalid_device_code")
			case errors.Is(err, deviceflow.ErrExpiredCode):
				writeError(w, http.StatusBadRequest, "expired_token")
			case errors.Is(err, deviceflow.ErrPendingAuthorization):
				// 428 tells the client to keep waiting, not to give up
				writeError(w, http.StatusPreconditionRequired, "authorization_pending")
			default:
				s.logger.Error().Err(err).Msg("checking device code")
				writeError(w, http.StatusInternalServerError, "server_error")
			}
			return
		}

		accessToken, err := s.codec.Mint(session.Subject, session.Team)
		if err != nil {
			s.logger.Error().Err(err).Msg("minting token")
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		s.logger.Info().
			Str("sub", session.Subject).
			Str("team", session.Team).
			Msg("access token issued")

		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   int(s.codec.TTL().Seconds()),
		})
	}
}

// Activation form handler: the browser page where the user enters the code
func (s *server) handleActivateForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		csrfToken, err := s.csrf.GenerateToken(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("generating csrf token")
			http.Error(w, "error rendering page", http.StatusInternalServerError)
			return
		}

		data := templates.ActivateData{
			PrefilledCode: r.URL.Query().Get("code"),
			CSRFToken:     csrfToken,
			Subject:       s.cfg.DefaultSubject,
			Teams:         s.cfg.Teams,
		}
		if err := s.templates.RenderActivate(w, data); err != nil {
			http.Error(w, "error rendering page", http.StatusInternalServerError)
		}
	}
}

// Approval handler: the form posts user_code plus the chosen identity
func (s *server) handleActivate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderRejection(w, http.StatusBadRequest, "Invalid request", "The form could not be read. Try again.")
			return
		}

		if err := s.csrf.ValidateToken(r.Context(), r.PostForm.Get("csrf_token")); err != nil {
			s.renderRejection(w, http.StatusForbidden, "Session expired", "Reload the activation page and try again.")
			return
		}

		userCode := r.PostForm.Get("user_code")
		subject := r.PostForm.Get("sub")
		if subject == "" {
			subject = "user"
		}
		team := r.PostForm.Get("team")
		if team == "" {
			team = "guest"
		}

		session, err := s.flow.Approve(r.Context(), userCode, subject, team)
		if err != nil {
			s.logger.Info().Err(err).Str("user_code", userCode).Msg("activation rejected")
			s.renderRejection(w, http.StatusBadRequest, "Invalid code", "The code was not recognized or has expired. Try again.")
			return
		}

		s.logger.Info().
			Str("user_code", session.UserCode).
			Str("sub", session.Subject).
			Str("team", session.Team).
			Msg("device approved")

		if err := s.templates.RenderApproved(w, templates.ApprovedData{
			Subject: session.Subject,
			Team:    session.Team,
		}); err != nil {
			http.Error(w, "error rendering page", http.StatusInternalServerError)
		}
	}
}

func (s *server) renderRejection(w http.ResponseWriter, status int, title, message string) {
	w.WriteHeader(status)
	if err := s.templates.RenderError(w, templates.ErrorData{Title: title, Message: message}); err != nil {
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}

// readDeviceCode accepts both JSON and form-encoded token requests,
// matching what CLI clients send
func readDeviceCode(r *http.Request) (string, bool) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			DeviceCode string `json:"device_code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", false
		}
		return body.DeviceCode, true
	}

	if err := r.ParseForm(); err != nil {
		return "", false
	}
	return r.PostForm.Get("device_code"), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
