package auth

import (
	"crypto/subtle"
	"errors"
)

// ErrTokenMismatch indicates a push notification carried the wrong verification token
var ErrTokenMismatch = errors.New("channel verification token mismatch")

// VerifyChannelToken compares the token a push notification carried with the configured secret.
// An empty secret disables verification.
func VerifyChannelToken(expected, got string) error {
	if expected == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
