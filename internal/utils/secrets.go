package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateServiceSecrets generates the JWT signing secret and the audit
// pseudonymisation key. They must never be the same value.
func GenerateServiceSecrets() (jwtSecret, auditHashKey string, err error) {
	jwtSecret, err = GenerateSecret(32) // 256-bit
	if err != nil {
		return "", "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	auditHashKey, err = GenerateSecret(32) // BLAKE2b key, max 64 bytes
	if err != nil {
		return "", "", fmt.Errorf("failed to generate audit hash key: %w", err)
	}

	return jwtSecret, auditHashKey, nil
}
