// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the caller identity handed to the chat client.
//
// A Context is passed explicitly to every component that needs the user ID or
// bearer token; nothing reads identity from global state. Store persists a
// Context between runs with the token sealed at rest.
//
// # Usage
//
//	store := session.NewStore(path, session.MachinePassphrase())
//	sess, err := store.Load()
//	client := chatclient.New(sess, transcript, cfg)
package session
