package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// PositiveIntOr parses s as a positive integer, falling back to def when s is
// blank. Anything else that is not a positive integer is an error.
func PositiveIntOr(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := StringToInt(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid positive integer %q", s)
	}
	return n, nil
}

func deriveKey(secret string) []byte {
	hash := sha256.Sum256([]byte(secret))
	return hash[:]
}

// Sealer encrypts short values at rest with XChaCha20-Poly1305 under a key
// derived from a configured secret.
type Sealer struct {
	key []byte
}

func NewSealer(secret string) *Sealer {
	return &Sealer{key: deriveKey(secret)}
}

func (s *Sealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	data, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonceSize := aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("invalid cipher text")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
