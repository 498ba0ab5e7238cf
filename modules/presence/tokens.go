package presence

import (
	"crypto/rand"
	"math/big"
)

// Identity tokens look like "user-k3j9x0a2f": a fixed prefix plus nine
// base36 characters. Clients persist them across reconnects, so the shape
// is part of the contract.
const (
	tokenPrefix   = "user-"
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	tokenLength   = 9
)

// GenerateToken returns a fresh identity token.
func GenerateToken() (string, error) {
	code := make([]byte, tokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))

	for i := 0; i < tokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = tokenAlphabet[n.Int64()]
	}

	return tokenPrefix + string(code), nil
}
