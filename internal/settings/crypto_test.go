// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the durable key-value store backing user
// preferences and chat session persistence.
package settings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrypter_RoundTrip(t *testing.T) {
	c, err := NewCrypter(t.TempDir())
	require.NoError(t, err)

	plaintext := "sk-or-v1-0123456789abcdef0123456789abcdef"
	enc, err := c.EncryptString(plaintext)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(enc, EncryptedPrefix), "ciphertext must carry ENC: prefix")
	assert.NotContains(t, enc, plaintext, "ciphertext must not contain plaintext")

	dec, err := c.DecryptString(enc)
	require.NoError(t, err)
	assert.Equal(t, plaintext, dec)
}

func TestCrypter_NoncesAreUnique(t *testing.T) {
	c, err := NewCrypter(t.TempDir())
	require.NoError(t, err)

	a, err := c.EncryptString("same input")
	require.NoError(t, err)
	b, err := c.EncryptString("same input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two encryptions of the same input must differ")
}

func TestCrypter_PlaintextPassesThrough(t *testing.T) {
	c, err := NewCrypter(t.TempDir())
	require.NoError(t, err)

	// Values written before encryption was introduced have no prefix.
	dec, err := c.DecryptString("legacy-plaintext-key")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext-key", dec)
}

func TestCrypter_TamperedCiphertextFails(t *testing.T) {
	c, err := NewCrypter(t.TempDir())
	require.NoError(t, err)

	enc, err := c.EncryptString("secret")
	require.NoError(t, err)

	// Flip a character in the base64 payload
	tampered := []byte(enc)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = c.DecryptString(string(tampered))
	assert.Error(t, err)
}

func TestCrypter_KeyMaterialPersists(t *testing.T) {
	dir := t.TempDir()

	c1, err := NewCrypter(dir)
	require.NoError(t, err)
	enc, err := c1.EncryptString("survives restart")
	require.NoError(t, err)

	// A second Crypter over the same directory must reuse the key material.
	c2, err := NewCrypter(dir)
	require.NoError(t, err)
	dec, err := c2.DecryptString(enc)
	require.NoError(t, err)
	assert.Equal(t, "survives restart", dec)
}

func TestCrypter_InvalidBase64(t *testing.T) {
	c, err := NewCrypter(t.TempDir())
	require.NoError(t, err)

	_, err = c.DecryptString(EncryptedPrefix + "!!!not-base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestCrypter_TruncatedCiphertext(t *testing.T) {
	c, err := NewCrypter(t.TempDir())
	require.NoError(t, err)

	// Valid base64 but shorter than a nonce
	_, err = c.DecryptString(EncryptedPrefix + "QUJD")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ZeroBytes(b)
	for i, v := range b {
		assert.Zerof(t, v, "byte %d not zeroed", i)
	}
}
