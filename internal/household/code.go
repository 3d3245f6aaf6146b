// Package household generates and normalises household invite codes.
package household

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet omits characters that are easy to confuse when read aloud or
// typed from a screen (0/O, 1/I).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in an invite code.
const CodeLength = 6

// MaxCodeAttempts bounds retries when a generated code collides with an
// existing household.
const MaxCodeAttempts = 5

// GenerateCode returns a random invite code drawn from Alphabet.
func GenerateCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	limit := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode trims whitespace and upper-cases user input.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCode reports whether code has the right length and alphabet.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
