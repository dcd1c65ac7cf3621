// Package devlogin drives the device authorization flow from the client
// side: it requests a device code, tells the operator where to approve it,
// polls the token endpoint and finally calls the protected resource.
package devlogin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// ErrDeviceFlowTimedOut indicates the user did not approve the device
// before the code's validity window ran out
var ErrDeviceFlowTimedOut = errors.New("device flow timed out")

// errAuthorizationPending is the retry signal from the token endpoint
var errAuthorizationPending = errors.New("authorization pending")

// Client performs device logins against an identity provider and calls
// the platform API with the resulting token
type Client struct {
	idpURL string
	apiURL string
	http   *http.Client
	out    io.Writer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for all requests
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithOutput redirects operator-facing instructions, which go to stdout
// by default
func WithOutput(w io.Writer) Option {
	return func(c *Client) {
		c.out = w
	}
}

// New creates a device login client for the given identity provider and
// platform API base URLs
func New(idpURL, apiURL string, opts ...Option) *Client {
	c := &Client{
		idpURL: idpURL,
		apiURL: apiURL,
		http:   &http.Client{Timeout: 10 * time.Second},
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	Interval        int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Login runs the device flow to completion. It displays the user code and
// verification URI, then polls the token endpoint at the server-suggested
// interval. Polling stops with ErrDeviceFlowTimedOut once the code's
// validity window has passed.
func (c *Client) Login(ctx context.Context) (*oauth2.Token, error) {
	device, err := c.requestDeviceCode(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "== Device Login ==")
	fmt.Fprintf(c.out, "1) Open: %s\n", device.VerificationURI)
	fmt.Fprintf(c.out, "2) Enter code: %s\n", device.UserCode)
	fmt.Fprintln(c.out, "3) Approve in browser")
	fmt.Fprintln(c.out)

	// The session is useless past its window; stop polling then
	ctx, cancel := context.WithDeadline(ctx, time.Now().Add(time.Duration(device.ExpiresIn)*time.Second))
	defer cancel()

	interval := time.Duration(device.Interval) * time.Second

	for {
		tok, err := c.exchangeToken(ctx, device.DeviceCode)
		switch {
		case err == nil:
			return tok, nil
		case errors.Is(err, errAuthorizationPending):
			select {
			case <-ctx.Done():
				return nil, ErrDeviceFlowTimedOut
			case <-time.After(interval):
			}
		case errors.Is(err, context.DeadlineExceeded):
			return nil, ErrDeviceFlowTimedOut
		default:
			return nil, err
		}
	}
}

func (c *Client) requestDeviceCode(ctx context.Context) (*deviceCodeResponse, error) {
	resp, err := c.postJSON(ctx, c.idpURL+"/device/code", struct{}{})
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("requesting device code: unexpected status %d", resp.StatusCode)
	}

	var device deviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&device); err != nil {
		return nil, fmt.Errorf("decoding device code response: %w", err)
	}
	return &device, nil
}

// exchangeToken performs one poll of the token endpoint
func (c *Client) exchangeToken(ctx context.Context, deviceCode string) (*oauth2.Token, error) {
	resp, err := c.postJSON(ctx, c.idpURL+"/oauth/token", map[string]string{"device_code": deviceCode})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
		}
		if errResp.Error == "authorization_pending" {
			return nil, errAuthorizationPending
		}
		return nil, fmt.Errorf("token endpoint error: %s", errResp.Error)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	return &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

// Resource is the platform API's success response
type Resource struct {
	Message string `json:"message"`
	Subject string `json:"sub"`
	Team    string `json:"team"`
	Issuer  string `json:"iss"`
}

// CallResource fetches the protected platform resource with the token
func (c *Client) CallResource(ctx context.Context, tok *oauth2.Token) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/platform/resource", nil)
	if err != nil {
		return nil, fmt.Errorf("building resource request: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, fmt.Errorf("resource returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("resource denied (%d): %s", resp.StatusCode, errResp.Error)
	}

	var resource Resource
	if err := json.NewDecoder(resp.Body).Decode(&resource); err != nil {
		return nil, fmt.Errorf("decoding resource response: %w", err)
	}
	return &resource, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.http.Do(req)
}
