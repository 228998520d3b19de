// Package secrets generates raw credential material (invite tokens,
// temporary passwords) and provides the one-way hash used to key
// revocation and invite cache entries.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"math/big"
)

// TokenBytes is the entropy of a raw invite token before encoding.
const TokenBytes = 32

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomToken returns a URL-safe random token with [TokenBytes] bytes
// of entropy. The raw value is delivered to the end user; only its
// SHA-256 hash is ever persisted.
func RandomToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RandomPassword returns an alphanumeric password of the given length.
func RandomPassword(length int) (string, error) {
	if length <= 0 {
		length = 32
	}

	out := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of value.
func SHA256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
