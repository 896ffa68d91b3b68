// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across souq-assist.
//
//   - AtomicWriteFile: crash-safe file writes with fsync and rename
//   - TruncateRunes, TruncateWidth: UTF-8 and column aware truncation
//
// Usage:
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	label := util.TruncateWidth(title, 40)
package util
