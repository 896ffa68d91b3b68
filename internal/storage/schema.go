// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// SchemaVersion is bumped whenever Schema changes incompatibly.
const SchemaVersion = 1

// Schema creates the history tables. Messages are stored one row each, in
// transcript order, with tool invocations and buttons kept as JSON.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	user_id    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq              INTEGER NOT NULL,
	id               TEXT NOT NULL,
	role             TEXT NOT NULL,
	content          TEXT NOT NULL DEFAULT '',
	timestamp        INTEGER NOT NULL,
	failed           INTEGER NOT NULL DEFAULT 0,
	tool_invocations TEXT NOT NULL DEFAULT '',
	buttons          TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (conversation_id, seq)
);
`

// InitMetadata records the schema version on first open.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
