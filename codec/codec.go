package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// Placeholder is rendered in place of a value that failed to decrypt.
const Placeholder = "[Decryption Failed]"

var (
	// ErrInvalidKey is returned by New for keys that are not AES sized.
	ErrInvalidKey = errors.New("codec key must be 16, 24, or 32 bytes")
	// ErrDecryptionFailed is matched by every DecryptionError.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// DecryptionError reports why a ciphertext could not be opened.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return "decryption failed: " + e.Reason
}

// Is lets errors.Is match ErrDecryptionFailed.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryptionFailed
}

// Codec seals and opens field values with one AES-GCM key.
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// New returns a Codec for key.
func New(key []byte) (*Codec, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh nonce.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any structural or
// authentication failure is returned as a *DecryptionError.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &DecryptionError{Reason: "invalid encoding"}
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return "", &DecryptionError{Reason: "ciphertext too short"}
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed"}
	}
	return string(plaintext), nil
}

// Reveal decrypts ciphertext for display, substituting Placeholder when the
// value cannot be opened.
func (c *Codec) Reveal(ciphertext string) string {
	plaintext, err := c.Decrypt(ciphertext)
	if err != nil {
		return Placeholder
	}
	return plaintext
}
