// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the durable key-value store backing user
// preferences and chat session persistence.
package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/SAADAT-Abu/Lexi/internal/util"
	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// EncryptedPrefix marks a value as encrypted (format: ENC:base64(nonce|ciphertext|tag))
const EncryptedPrefix = "ENC:"

// NonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const NonceSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits)
const KeySize = 32

// SaltSize is the size of the salt for key derivation (32 bytes)
const SaltSize = 32

// PBKDF2Iterations is the number of iterations for PBKDF2 key derivation.
// OWASP 2023 recommends 600,000+ for PBKDF2-SHA-256 to provide adequate
// resistance against brute-force attacks with modern hardware.
const PBKDF2Iterations = 600000

// Key material file names, stored next to the settings file.
const (
	secretFileName = "settings.key"
	saltFileName   = "settings.key.salt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCiphertext indicates the ciphertext format is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates decryption failed (wrong key or tampered data).
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)

// ZeroBytes securely zeros sensitive byte slices to prevent memory disclosure.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// CRYPTER
// =============================================================================

// Crypter provides AES-256-GCM encryption for sensitive settings slots.
//
// The cipher key is derived via PBKDF2-SHA-256 from a random machine
// secret kept in a 0600 file next to the settings store. This protects
// credentials from casual disclosure (backups, file sync, shoulder
// surfing the settings file); it does not defend against an attacker
// with full access to the same user account.
type Crypter struct {
	mu     sync.Mutex
	cipher cipher.AEAD
}

// NewCrypter loads or creates the key material under dir and returns a
// ready Crypter.
func NewCrypter(dir string) (*Crypter, error) {
	secret, salt, err := loadOrCreateKeyMaterial(dir)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(secret)

	key := pbkdf2.Key(secret, salt, PBKDF2Iterations, KeySize, sha256.New)
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	return &Crypter{cipher: gcm}, nil
}

// loadOrCreateKeyMaterial reads the machine secret and salt, generating
// both on first use.
func loadOrCreateKeyMaterial(dir string) (secret, salt []byte, err error) {
	secretPath := filepath.Join(dir, secretFileName)
	saltPath := filepath.Join(dir, saltFileName)

	secret, serr := os.ReadFile(secretPath)
	salt, saerr := os.ReadFile(saltPath)
	if serr == nil && saerr == nil && len(secret) == KeySize && len(salt) == SaltSize {
		return secret, salt, nil
	}

	// First run (or damaged key files): generate fresh material. Values
	// encrypted under the old key become unreadable, which callers treat
	// the same as an unset slot.
	secret = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, nil, fmt.Errorf("failed to generate machine secret: %w", err)
	}
	salt = make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(secretPath, secret, 0600, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to save machine secret: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(saltPath, salt, 0600, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to save salt: %w", err)
	}

	return secret, salt, nil
}

// EncryptString encrypts a string and returns base64-encoded ciphertext
// with the ENC: prefix.
func (c *Crypter) EncryptString(plaintext string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Output layout: nonce || ciphertext || tag
	ciphertext := c.cipher.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString decrypts a base64-encoded string with the ENC: prefix.
// Values without the prefix are returned unchanged.
func (c *Crypter) DecryptString(value string) (string, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return value, nil
	}

	encoded := strings.TrimPrefix(value, EncryptedPrefix)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(data) < NonceSize {
		return "", ErrInvalidCiphertext
	}

	nonce := data[:NonceSize]
	ciphertext := data[NonceSize:]

	c.mu.Lock()
	plaintext, err := c.cipher.Open(nil, nonce, ciphertext, nil)
	c.mu.Unlock()
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsEncrypted checks if a string value is encrypted (has the ENC: prefix).
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}
