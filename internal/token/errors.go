package token

import "errors"

// Verification failures surfaced by DecodeAndVerify
var (
	// ErrMalformedToken indicates the token does not parse as a compact JWT
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature indicates the HMAC signature did not verify
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired indicates the token is past its exp claim
	ErrTokenExpired = errors.New("token expired")

	// ErrAudienceMismatch indicates the aud claim does not match the expected audience
	ErrAudienceMismatch = errors.New("token audience mismatch")
)
