package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrCSRFMismatch is returned when the double-submit check fails.
var ErrCSRFMismatch = errors.New("CSRF token mismatch")

// csrfTokenBytes is 256 bits of randomness.
const csrfTokenBytes = 32

// NewCSRFToken returns an unpredictable hex token for the double-submit
// cookie pattern.
func NewCSRFToken() (string, error) {
	return randomHex(csrfTokenBytes)
}

// VerifyCSRF succeeds only when both the cookie and the header value are
// present and identical.
func VerifyCSRF(cookieValue, headerValue string) error {
	if cookieValue == "" || headerValue == "" {
		return ErrCSRFMismatch
	}
	if subtle.ConstantTimeCompare([]byte(cookieValue), []byte(headerValue)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
