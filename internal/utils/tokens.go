package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomToken returns a cryptographically random hex string of 2*n
// characters, used for password-reset tokens.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
