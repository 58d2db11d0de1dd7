// Package random supplies the uniform random strings used for OTP codes and
// transaction references.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Source generates strings whose characters are drawn independently and
// uniformly, with replacement, from a fixed alphabet.
type Source interface {
	// Digits returns n characters from 0-9. Leading zeros are valid.
	Digits(n int) (string, error)
	// Alphanumeric returns n characters from A-Z and 0-9.
	Alphanumeric(n int) (string, error)
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

func NewCryptoSource() *CryptoSource {
	return &CryptoSource{}
}

func (CryptoSource) Digits(n int) (string, error) {
	return pick(digits, n)
}

func (CryptoSource) Alphanumeric(n int) (string, error) {
	return pick(alphanumeric, n)
}

func pick(alphabet string, n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("random: negative length %d", n)
	}
	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Fixed returns the same values on every call. Tests use it to pin codes
// and references.
type Fixed struct {
	DigitsValue       string
	AlphanumericValue string
}

func (f Fixed) Digits(n int) (string, error) {
	return repeat(f.DigitsValue, n), nil
}

func (f Fixed) Alphanumeric(n int) (string, error) {
	return repeat(f.AlphanumericValue, n), nil
}

// repeat cycles s to exactly n characters.
func repeat(s string, n int) string {
	if s == "" || n <= 0 {
		return ""
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = s[i%len(s)]
	}
	return string(out)
}
