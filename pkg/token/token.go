package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	// DefaultLength is the token length in random bytes (256 bits).
	DefaultLength = 32
)

// Pair holds a freshly generated token together with its storage form.
type Pair struct {
	Token string // value returned to the client
	Hash  string // value kept in storage
}

func generate(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultLength
	}

	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// NewPair generates an opaque bearer token and its hash.
func NewPair() (*Pair, error) {
	tok, err := generate(DefaultLength)
	if err != nil {
		return nil, err
	}

	return &Pair{
		Token: tok,
		Hash:  Hash(tok),
	}, nil
}

// Hash returns the hex-encoded sha256 of a token. Tokens are never stored
// in the clear; lookups re-hash the presented value.
func Hash(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// Verify compares a presented token against a stored hash.
func Verify(tok, storedHash string) (bool, error) {
	if tok == "" || storedHash == "" {
		return false, errors.New("token and hash cannot be empty")
	}

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(Hash(tok)), []byte(storedHash)) == 1, nil
}
