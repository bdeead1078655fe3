// Package security holds the at-rest protection for card numbers.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12
	tagSize   = 16
)

// PANCipher encrypts card numbers with AES-256-GCM. Tokens are
// base64(nonce || ciphertext || tag) with a fresh random nonce per call,
// so equal inputs never produce equal tokens.
//
// A PANCipher holds no mutable state and is safe for concurrent use.
type PANCipher struct {
	aead cipher.AEAD
}

// NewPANCipher derives the key from secret's raw bytes, truncated or
// zero-padded to 32 bytes.
func NewPANCipher(secret string) (*PANCipher, error) {
	key := make([]byte, keySize)
	copy(key, secret)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("pan cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("pan cipher: %w", err)
	}
	return &PANCipher{aead: aead}, nil
}

// Encrypt returns the at-rest token for plain.
func (c *PANCipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, nonceSize, nonceSize+len(plain)+tagSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: encrypt pan", domain.ErrCryptoFailure)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Malformed tokens, tampered ciphertext and a
// wrong key all yield the same opaque error.
func (c *PANCipher) Decrypt(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil || len(raw) < nonceSize+tagSize {
		return "", fmt.Errorf("%w: decrypt pan", domain.ErrCryptoFailure)
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: decrypt pan", domain.ErrCryptoFailure)
	}
	return string(plain), nil
}
