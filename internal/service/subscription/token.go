package subscription

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// tokenAlphabet is the character set for confirmation tokens.
const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// tokenLength of 25 alphanumeric characters gives ~148 bits of entropy
// (62^25), comfortably past the guessing-infeasible bar.
const tokenLength = 25

// GenerateToken produces a confirmation token from a cryptographically
// strong random source.
func GenerateToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, tokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
