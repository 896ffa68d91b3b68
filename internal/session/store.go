// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/souq-assist/internal/util"
)

// =============================================================================
// STORE
// =============================================================================

// storedSession is the on-disk form of a Context.
type storedSession struct {
	UserID        string    `json:"user_id"`
	Token         string    `json:"token,omitempty"`
	KDFIterations int       `json:"kdf_iterations,omitempty"`
	SavedAt       time.Time `json:"saved_at"`
}

// Store persists a Context to a JSON file with the token sealed.
type Store struct {
	path       string
	passphrase string
	iterations int
}

// NewStore creates a Store for the file at path.
func NewStore(path, passphrase string) *Store {
	return &Store{
		path:       path,
		passphrase: passphrase,
		iterations: DefaultIterations,
	}
}

// DefaultPath returns ~/.souq-assist/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".souq-assist", "session.json"), nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored Context. A missing file yields an anonymous Context.
func (s *Store) Load() (Context, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Anonymous(), nil
		}
		return Anonymous(), fmt.Errorf("read session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return Anonymous(), fmt.Errorf("parse session: %w", err)
	}

	iterations := stored.KDFIterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	token, err := open(stored.Token, s.passphrase, iterations)
	if err != nil {
		// Keep the identity even when the token is unreadable.
		return Context{UserID: stored.UserID}, err
	}
	return Context{UserID: stored.UserID, AuthToken: token}, nil
}

// Save writes ctx to disk with 0600 permissions.
func (s *Store) Save(ctx Context) error {
	stored := storedSession{
		UserID:  ctx.UserID,
		SavedAt: time.Now().UTC(),
	}
	if ctx.AuthToken != "" {
		sealed, err := seal(ctx.AuthToken, s.passphrase, s.iterations)
		if err != nil {
			return err
		}
		stored.Token = sealed
		stored.KDFIterations = s.iterations
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return util.AtomicWriteFile(s.path, data, 0600)
}

// Clear removes the stored session. Clearing a missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
