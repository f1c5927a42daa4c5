package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// InviteCodeBytes is the amount of randomness in an invite code (128 bits).
const InviteCodeBytes = 16

// GenerateInviteCode returns a 128-bit random code, hex encoded (32 characters).
func GenerateInviteCode() (string, error) {
	bytes := make([]byte, InviteCodeBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}
