package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const opaqueTokenBytes = 16 // 128 bits, 32 hex chars on the wire

// NewOpaqueToken returns a fresh random credential string. Used for
// authorization codes, access tokens and refresh tokens; the values
// carry no structure and are only meaningful as database lookups.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
