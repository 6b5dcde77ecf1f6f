// Package webhook verifies payment-gateway webhook authenticity using a
// keyed hash over the raw request body.
//
// Verification must happen before the payload is parsed as structured
// data, and the body must be hashed exactly as received: any transcoding
// (re-serialization) produces a different digest and breaks the check.
// Capture the body as a byte buffer and pass it through untouched.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the lowercase-hex HMAC-SHA256 digest of the payload.
// This is the signature scheme the gateway applies to deliveries; it is
// exported for tests and outbound use.
func Sign(secret string, payload []byte) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks the signature header against the digest of the raw
// payload. A missing signature and a mismatch both fail closed; the
// comparison is constant time so the check leaks no timing information.
func Verify(secret string, payload []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	expected, err := Sign(secret, payload)
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
