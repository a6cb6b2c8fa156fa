package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeDigits = 16

// GenerateCode produces an opaque numeric token suitable for a 1D barcode.
// Uniqueness is enforced by the vouchers.code unique constraint; callers
// retry on collision.
func GenerateCode() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(codeDigits), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
