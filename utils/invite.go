package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateInviteCode returns a random 12-character workspace invite code.
func GenerateInviteCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
