package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrDecryptionFailed is returned when a ciphertext/IV pair cannot be
// decrypted, typically after tampering or a key change.
var ErrDecryptionFailed = errors.New("decryption failed")

// Encryptor encrypts message bodies for at-rest storage with AES-256-GCM.
// The key is process-wide, loaded once at startup and never mutated, so an
// Encryptor is safe for concurrent use.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor builds an Encryptor from a 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes (256 bits), got %d bytes", len(key))
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	block, err := aes.NewCipher(keyCopy)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt encrypts plaintext with a fresh random nonce. It returns the base64
// ciphertext and base64 nonce separately, matching the storage columns.
func (e *Encryptor) Encrypt(plaintext string) (content string, iv string, err error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", fmt.Errorf("generate iv: %w", err)
	}

	sealed := e.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(nonce), nil
}

// Decrypt reverses Encrypt. Any malformed or tampered input yields
// ErrDecryptionFailed; the underlying cause is not distinguished to callers.
func (e *Encryptor) Decrypt(content string, iv string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(nonce) != e.aead.NonceSize() {
		return "", ErrDecryptionFailed
	}

	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// DecryptFromStorage decrypts a stored message body. Rows with an empty IV
// predate encryption and are returned verbatim; that passthrough is a
// backward-compatibility policy, not a security feature.
func (e *Encryptor) DecryptFromStorage(content string, iv string) (string, error) {
	if iv == "" {
		return content, nil
	}
	return e.Decrypt(content, iv)
}
