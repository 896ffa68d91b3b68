// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation history for souq-assist.
//
// Transcripts are saved to a SQLite database (pure Go driver) so that a
// session can be listed, searched, resumed and exported later. The
// in-memory transcript stays the source of truth while chatting; the store
// only ever sees finalized messages.
//
// # Key Types
//
//   - ConversationStore: SQLite-backed history
//   - model.ConversationMeta: Lightweight metadata for listing
//
// # Usage
//
//	store, err := storage.Open(path)
//	defer store.Close()
//	err = store.Save(transcript.Snapshot())
//
//	metas, err := store.List()
//	conv, err := store.Load(metas[0].ID)
//	md := storage.ExportMarkdown(conv)
//
// # Storage Location
//
// The database lives at ~/.souq-assist/history.db unless configured.
package storage
