// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/souq-assist/internal/model"
)

// DefaultMaxConversations is the number of conversations kept before the
// oldest are pruned.
const DefaultMaxConversations = 500

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
	ID      string
}

func (e *ConversationError) Error() string {
	if e.ID != "" {
		return e.Message + ": " + e.ID
	}
	return e.Message
}

// Is matches conversation errors by message, ignoring the ID.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func notFound(id string) error {
	return &ConversationError{Message: ErrConversationNotFound.Message, ID: id}
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore persists transcripts in a SQLite database.
type ConversationStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex

	// MaxConversations caps the stored history; 0 disables pruning.
	MaxConversations int
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*ConversationStore, error) {
	if path == "" {
		return nil, errors.New("storage: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &ConversationStore{
		db:               db,
		path:             path,
		MaxConversations: DefaultMaxConversations,
	}, nil
}

// Path returns the database file path.
func (s *ConversationStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}

// Save writes conv, replacing any previous version with the same ID.
// Messages still streaming are not persisted.
func (s *ConversationStore) Save(conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("storage: conversation has no ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	updated := conv.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			user_id = excluded.user_id,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Title, conv.UserID, conv.CreatedAt.UnixNano(), updated.UnixNano())
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", conv.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("clear messages %s: %w", conv.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (conversation_id, seq, id, role, content, timestamp, failed, tool_invocations, buttons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for _, msg := range conv.Messages {
		if msg == nil || msg.IsStreaming {
			continue
		}
		tools, err := encodeJSON(msg.ToolInvocations)
		if err != nil {
			return fmt.Errorf("encode tool invocations of %s: %w", msg.ID, err)
		}
		buttons, err := encodeJSON(msg.Buttons)
		if err != nil {
			return fmt.Errorf("encode buttons of %s: %w", msg.ID, err)
		}
		if _, err := stmt.Exec(conv.ID, seq, msg.ID, string(msg.Role), msg.Content,
			msg.Timestamp.UnixNano(), boolToInt(msg.Failed), tools, buttons); err != nil {
			return fmt.Errorf("save message %s: %w", msg.ID, err)
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	s.enforceLimit()
	return nil
}

// enforceLimit removes the oldest conversations beyond MaxConversations.
// Failures are ignored; pruning is retried on the next save.
func (s *ConversationStore) enforceLimit() {
	if s.MaxConversations <= 0 {
		return
	}
	s.db.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations ORDER BY updated_at DESC LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
}

// Load returns the conversation with the given ID.
func (s *ConversationStore) Load(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &model.Conversation{ID: id}
	var created, updated int64
	err := s.db.QueryRow(
		"SELECT title, user_id, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&conv.Title, &conv.UserID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)

	rows, err := s.db.Query(`
		SELECT id, role, content, timestamp, failed, tool_invocations, buttons
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages %s: %w", id, err)
	}
	defer rows.Close()

	conv.Messages = make([]*model.Message, 0)
	for rows.Next() {
		var (
			msg     model.Message
			role    string
			ts      int64
			failed  int
			tools   string
			buttons string
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &ts, &failed, &tools, &buttons); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(0, ts)
		msg.Failed = failed != 0
		if err := decodeJSON(tools, &msg.ToolInvocations); err != nil {
			return nil, fmt.Errorf("decode tool invocations of %s: %w", msg.ID, err)
		}
		if err := decodeJSON(buttons, &msg.Buttons); err != nil {
			return nil, fmt.Errorf("decode buttons of %s: %w", msg.ID, err)
		}
		conv.Messages = append(conv.Messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read messages %s: %w", id, err)
	}
	return conv, nil
}

// LoadByIndex loads a conversation by its 1-based position in List order.
func (s *ConversationStore) LoadByIndex(index int) (*model.Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(metas) {
		return nil, notFound(fmt.Sprintf("#%d", index))
	}
	return s.Load(metas[index-1].ID)
}

// List returns conversation metadata, newest first.
func (s *ConversationStore) List() ([]model.ConversationMeta, error) {
	return s.queryMeta("", nil)
}

// Search returns conversations whose title or any message contains query,
// newest first. Matching is case-insensitive for ASCII. An empty query
// lists everything.
func (s *ConversationStore) Search(query string) ([]model.ConversationMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List()
	}
	pattern := "%" + escapeLike(query) + "%"
	return s.queryMeta(`
		WHERE c.title LIKE ? ESCAPE '\'
		   OR EXISTS (SELECT 1 FROM messages m
		              WHERE m.conversation_id = c.id AND m.content LIKE ? ESCAPE '\')`,
		[]any{pattern, pattern})
}

func (s *ConversationStore) queryMeta(where string, args []any) ([]model.ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
			COALESCE((SELECT m.content FROM messages m
			          WHERE m.conversation_id = c.id AND m.role = 'user'
			          ORDER BY m.seq DESC LIMIT 1), '')
		FROM conversations c `+where+`
		ORDER BY c.updated_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	metas := make([]model.ConversationMeta, 0)
	for rows.Next() {
		var (
			meta             model.ConversationMeta
			created, updated int64
			lastUser         string
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &created, &updated, &meta.MessageCount, &lastUser); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if meta.Title == "" {
			meta.Title = model.DefaultTitle
		}
		meta.CreatedAt = time.Unix(0, created)
		meta.UpdatedAt = time.Unix(0, updated)
		meta.Preview = (&model.Message{Content: lastUser}).Preview(model.PreviewRunes)
		if meta.MessageCount == 0 {
			meta.Preview = model.EmptyPreview
		}
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Delete removes a conversation and its messages.
func (s *ConversationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// Clear removes every stored conversation.
func (s *ConversationStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func encodeJSON(v any) (string, error) {
	rv, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if s := string(rv); s != "null" && s != "[]" {
		return s, nil
	}
	return "", nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
