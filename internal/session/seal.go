// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

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
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// EncryptedPrefix marks a sealed value (format: ENC:base64(salt|nonce|ciphertext|tag)).
const EncryptedPrefix = "ENC:"

const (
	keySize   = 32 // AES-256
	saltSize  = 16
	nonceSize = 12

	// DefaultIterations is the PBKDF2-SHA-256 work factor for new seals.
	DefaultIterations = 600000
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoPassphrase is returned when sealing or opening without a passphrase.
	ErrNoPassphrase = errors.New("session: no passphrase configured")
	// ErrDecrypt is returned when a sealed token cannot be opened, usually
	// because the passphrase changed.
	ErrDecrypt = errors.New("session: cannot decrypt token")
)

// =============================================================================
// SEAL / OPEN
// =============================================================================

func deriveKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext with a key derived from passphrase and a fresh salt.
func seal(plaintext, passphrase string, iterations int) (string, error) {
	if passphrase == "" {
		return "", ErrNoPassphrase
	}

	buf := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	salt, nonce := buf[:saltSize], buf[saltSize:]

	key := deriveKey(passphrase, salt, iterations)
	defer zero(key)

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	out := gcm.Seal(buf, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// open reverses seal. Values without EncryptedPrefix are returned unchanged.
func open(value, passphrase string, iterations int) (string, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return value, nil
	}
	if passphrase == "" {
		return "", ErrNoPassphrase
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil || len(raw) < saltSize+nonceSize {
		return "", ErrDecrypt
	}
	salt, nonce, ciphertext := raw[:saltSize], raw[saltSize:saltSize+nonceSize], raw[saltSize+nonceSize:]

	key := deriveKey(passphrase, salt, iterations)
	defer zero(key)

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// MachinePassphrase returns a passphrase bound to the current host and
// account. It keeps the token unreadable when the session file is copied
// elsewhere; it is not a substitute for a user-chosen passphrase.
func MachinePassphrase() string {
	host, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	if host == "" && home == "" {
		return ""
	}
	return "souq-assist:" + host + ":" + home
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
