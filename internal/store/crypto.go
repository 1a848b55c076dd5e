package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned when a stored value cannot be authenticated with the
// configured key.
var ErrDecrypt = errors.New("failed to decrypt stored credentials")

// Cipher seals configuration documents with XChaCha20-Poly1305.
type Cipher struct {
	key [chacha20poly1305.KeySize]byte
}

// NewCipher derives a key from secret with SHA-256.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("database encryption key is required")
	}
	return &Cipher{key: sha256.Sum256([]byte(secret))}, nil
}

// Seal encrypts plaintext and returns base64(nonce || ciphertext).
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, plaintext, nil)), nil
}

// Open reverses Seal.
func (c *Cipher) Open(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}

func (c *Cipher) sealConfig(cfg UserConfig) (string, error) {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding user configuration: %w", err)
	}
	return c.Seal(doc)
}

func (c *Cipher) openConfig(encoded string) (UserConfig, error) {
	plain, err := c.Open(encoded)
	if err != nil {
		return UserConfig{}, err
	}
	var cfg UserConfig
	if err := json.Unmarshal(plain, &cfg); err != nil {
		return UserConfig{}, fmt.Errorf("decoding user configuration: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}
