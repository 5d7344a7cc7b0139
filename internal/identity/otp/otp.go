// Package otp issues and checks the short-lived numeric codes that gate
// account registration. Codes are single-use: a successful check consumes
// the code so it cannot be replayed.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CodeLength is the number of digits in a generated code.
const CodeLength = 6

// CodeStore persists pending codes keyed by email until they expire or are
// consumed.
type CodeStore interface {
	// Save stores a code for the key, replacing any pending one.
	Save(ctx context.Context, key, code string, ttl time.Duration) error
	// Consume atomically fetches and deletes the pending code for the key.
	// Returns sentinel.ErrNotFound when no code is pending or it expired.
	Consume(ctx context.Context, key string) (string, error)
}

// GenerateCode returns a zero-padded numeric code of CodeLength digits.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for range CodeLength {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("could not generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
