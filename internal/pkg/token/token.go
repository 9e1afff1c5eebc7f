package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewSecurityStamp returns a fresh random stamp. Replacing an account's stamp
// invalidates every code derived from the previous one.
func NewSecurityStamp() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate security stamp: %w", err)
	}
	return hex.EncodeToString(b), nil
}
