package usecase

import (
	"crypto/rand"
	"io"
)

// generateAccessCode creates a secure, random, and human-readable access code.
// Format: XXXX-XXXX
func generateAccessCode() (string, error) {
	// A character set that avoids ambiguous characters like O/0, I/1, l.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 8

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}

	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}

	// Format as XXXX-XXXX
	return string(buffer[0:4]) + "-" + string(buffer[4:8]), nil
}
