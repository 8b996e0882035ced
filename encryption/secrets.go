package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// SealedPrefix marks a sealed value in configuration.
const SealedPrefix = "enc:"

// AEAD algorithms for Secrets.
const (
	SealAESGCM   = "aes-256-gcm"
	SealChaCha20 = "chacha20-poly1305"
)

// Secrets seals and opens short strings such as passwords kept in config
// files. Output is base64 of nonce||ciphertext with SealedPrefix.
type Secrets struct {
	aead cipher.AEAD
}

// NewSecrets creates a sealer keyed by the SHA-256 of passphrase. alg is
// SealAESGCM (default when empty) or SealChaCha20.
func NewSecrets(passphrase, alg string) (*Secrets, error) {
	key := DeriveKey(passphrase)
	var (
		aead cipher.AEAD
		err  error
	)
	switch strings.ToLower(alg) {
	case "", SealAESGCM:
		block, berr := aes.NewCipher(key)
		if berr != nil {
			return nil, fmt.Errorf("create cipher: %w", berr)
		}
		aead, err = cipher.NewGCM(block)
	case SealChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unsupported seal algorithm %q", alg)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", alg, err)
	}
	return &Secrets{aead: aead}, nil
}

// Seal encrypts plaintext and returns a prefixed base64 string.
func (s *Secrets) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (s *Secrets) Open(value string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("sealed value too short")
	}
	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Resolve opens sealed values and returns any other value unchanged.
func (s *Secrets) Resolve(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	return s.Open(value)
}

// IsSealed reports whether value carries SealedPrefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}
