// Package token implements the compact signed token format used between the
// identity provider and the platform API: an HS256 JWT carrying identity and
// team claims, signed with a shared secret.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token validity window when none is configured
const DefaultTTL = 5 * time.Minute

// Claims is the payload carried by an access token
type Claims struct {
	Team string `json:"team"`
	jwt.RegisteredClaims
}

// Codec encodes and verifies access tokens. The shared secret is read-only
// after construction; a Codec is safe for concurrent use.
type Codec struct {
	secret   []byte
	audience string
	issuer   string
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Codec
type Option func(*Codec)

// WithIssuer sets the iss claim stamped on minted tokens
func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

// WithTTL sets the validity window of minted tokens
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		c.ttl = ttl
	}
}

// withClock overrides the time source in tests
func withClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// New creates a Codec bound to a signing secret and an expected audience
func New(secret []byte, audience string, opts ...Option) *Codec {
	c := &Codec{
		secret:   secret,
		audience: audience,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window of minted tokens
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint encodes a fresh token for the given subject and team
func (c *Codec) Mint(subject, team string) (string, error) {
	now := c.now()
	return c.Encode(Claims{
		Team: team,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
}

// Encode signs the claims into compact form: base64url(header).base64url(payload).base64url(sig)
func (c *Codec) Encode(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// DecodeAndVerify parses a compact token, verifies its signature and
// validates expiry and audience. The returned claims are only populated
// after the signature has been verified.
func (c *Codec) DecodeAndVerify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, c.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrAudienceMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}
	return claims, nil
}

// verificationKey returns the shared secret after checking the signing method
func (c *Codec) verificationKey(tok *jwt.Token) (any, error) {
	if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
	}
	return c.secret, nil
}
