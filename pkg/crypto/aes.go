// Package crypto seals sensitive clinical text columns with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// sealedPrefix marks values written by FieldCipher. Rows without it predate
// encryption and are returned as stored.
const sealedPrefix = "v1:"

var (
	ErrInvalidKey = errors.New("crypto: key must be 32 bytes of hex")
	ErrMalformed  = errors.New("crypto: malformed sealed value")
)

// FieldCipher encrypts optional text columns. Each value is bound to an
// owner id passed as additional data, so a sealed value copied onto another
// row fails to open. The zero FieldCipher (no key) stores plaintext.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds a cipher from a 64-char hex key. An empty key yields
// a pass-through cipher for local setups.
func NewFieldCipher(hexKey string) (*FieldCipher, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return &FieldCipher{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

func (c *FieldCipher) Enabled() bool { return c != nil && c.aead != nil }

// Seal encrypts v for owner. Nil stays nil.
func (c *FieldCipher) Seal(v *string, owner string) (*string, error) {
	if v == nil || !c.Enabled() {
		return v, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	out := sealedPrefix + base64.RawStdEncoding.EncodeToString(c.aead.Seal(nonce, nonce, []byte(*v), []byte(owner)))
	return &out, nil
}

// Open decrypts a value sealed for owner. Nil stays nil.
func (c *FieldCipher) Open(v *string, owner string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	body, sealed := strings.CutPrefix(*v, sealedPrefix)
	if !sealed {
		return v, nil
	}
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: value is encrypted but no key is configured", ErrMalformed)
	}

	raw, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return nil, ErrMalformed
	}
	n := c.aead.NonceSize()
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], []byte(owner))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := string(plain)
	return &out, nil
}
