package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// JoinCodeAlphabet deliberately excludes visually ambiguous characters
// (I, O, 0, 1).
const JoinCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// JoinCodeLength is the fixed join code size.
const JoinCodeLength = 6

// NewJoinCode draws a random join code from the restricted alphabet. Codes
// are scoped by the discovery mechanism, so no cross-session uniqueness is
// enforced here.
func NewJoinCode() (string, error) {
	var raw [JoinCodeLength]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	var b strings.Builder
	for _, v := range raw {
		b.WriteByte(JoinCodeAlphabet[int(v)%len(JoinCodeAlphabet)])
	}
	return b.String(), nil
}

// IsValidJoinCode reports whether code has the expected length and alphabet.
func IsValidJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(JoinCodeAlphabet, c) {
			return false
		}
	}
	return true
}

// NormalizeJoinCode uppercases and trims a human-entered code.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
