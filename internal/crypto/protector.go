package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Token encryption purposes. Ciphertext produced under one purpose does not
// decrypt under another, so a leaked access-token blob cannot be replayed as
// a refresh token or vice versa.
const (
	PurposeAccessToken  = "access-token"
	PurposeRefreshToken = "refresh-token"
)

// Protector encrypts and decrypts secrets using AES-GCM (Galois/Counter Mode).
// AES-GCM provides both confidentiality and authenticity, making it suitable for
// encrypting OAuth tokens at rest. Each purpose string derives its own subkey
// from the master key via HKDF-SHA256, so the purpose acts as key-derivation salt.
type Protector struct {
	masterKey []byte
}

// NewProtector creates a new Protector with the given base64-encoded 32-byte master key.
func NewProtector(base64Key string) (*Protector, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (256 bits), got %d bytes", len(key))
	}

	return &Protector{masterKey: key}, nil
}

// deriveKey derives the 256-bit subkey for a purpose.
func (p *Protector) deriveKey(purpose string) ([]byte, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, p.masterKey, nil, []byte(purpose))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key for purpose %q: %w", purpose, err)
	}
	return key, nil
}

// Protect encrypts the given plaintext under the purpose's subkey.
// The returned ciphertext format is: [nonce][encrypted_data][auth_tag]
// where the nonce is prepended to the ciphertext for use during decryption.
// Each call uses a random nonce, so the same plaintext produces different ciphertexts.
func (p *Protector) Protect(purpose, plaintext string) ([]byte, error) {
	gcm, err := p.newGCM(purpose)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Unprotect decrypts ciphertext produced by Protect under the same purpose.
// Returns an error if the ciphertext is invalid, corrupted, was encrypted with
// a different key, or was encrypted under a different purpose (authentication
// failure). Callers treat this as fatal for the stored secret.
func (p *Protector) Unprotect(purpose string, ciphertext []byte) (string, error) {
	gcm, err := p.newGCM(purpose)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

func (p *Protector) newGCM(purpose string) (cipher.AEAD, error) {
	key, err := p.deriveKey(purpose)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}
