// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token format")
)

var ten = big.NewInt(10)

// GenerateCode creates a random numeric access code of the given length
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidToken
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate access code: %w", err)
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}

// NormalizeCode canonicalizes a caller-supplied code: surrounding
// whitespace is dropped and letters are upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// MaskCode hides all but the last two characters of a code for logging
func MaskCode(code string) string {
	if len(code) <= 2 {
		return strings.Repeat("*", len(code))
	}
	return strings.Repeat("*", len(code)-2) + code[len(code)-2:]
}

// NewBatchID returns a short identifier shared by tokens issued together
func NewBatchID() string {
	id := uuid.New()
	return "B-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// ValidateAdminKey checks the provided admin key against the configured one.
// Both sides are hashed first so the comparison does not leak the length.
func ValidateAdminKey(provided, configured string) error {
	if configured == "" || provided == "" {
		return ErrInvalidAdminKey
	}
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(configured))
	if !hmac.Equal(a[:], b[:]) {
		return ErrInvalidAdminKey
	}
	return nil
}
