package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Intn returns a cryptographically secure random integer in [0, n).
func Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("random: n must be positive, got %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}
