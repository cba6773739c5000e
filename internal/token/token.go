// Package token decodes session credentials without verifying them.
//
// The decoded claims are non-authoritative: the signature is never checked,
// so they are only good enough to decide whether a cached session is worth
// resuming. Anything security-sensitive must be decided by the backend.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a credential cannot be decoded.
var ErrMalformed = errors.New("malformed credential")

// segmentDecoder decodes base64url segments, padding them to a multiple of 4.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// Claims is the claim set embedded in a credential.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// DecodeClaimsUnsafe extracts the claims from the middle segment of a
// three-segment credential. The signature segment is ignored.
func DecodeClaimsUnsafe(credential string) (*Claims, error) {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(parts))
	}

	payload, err := segmentDecoder.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url: %v", ErrMalformed, err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not JSON: %v", ErrMalformed, err)
	}
	return &claims, nil
}

// Expired reports whether the claims carry an expiry that lies before now.
// Claims without an expiry never expire.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Valid reports whether credential decodes and is not expired at now.
func Valid(credential string, now time.Time) bool {
	claims, err := DecodeClaimsUnsafe(credential)
	if err != nil {
		return false
	}
	return !claims.Expired(now)
}

// Encode builds an unsigned three-segment credential carrying claims.
// It exists for tests and local tooling; backends issue real credentials.
func Encode(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	return t.SignedString(jwt.UnsafeAllowNoneSignatureType)
}
