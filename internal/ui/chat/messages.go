// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/souq-assist/internal/config"
	"github.com/jeranaias/souq-assist/internal/model"
)

// =============================================================================
// SEND MESSAGES
// =============================================================================

// TranscriptChangedMsg is delivered whenever the transcript mutates, so the
// view can redraw streamed text as it arrives.
type TranscriptChangedMsg struct{}

// SendDoneMsg signals that a send finished. Reply is the finalized
// assistant message; Err is only set for rejected sends.
type SendDoneMsg struct {
	Reply   *model.Message
	Err     error
	Elapsed time.Duration
}

// =============================================================================
// SIDE-EFFECT RESULTS
// =============================================================================

// SavedMsg reports the result of an autosave or /save.
type SavedMsg struct {
	Err error
}

// CopiedMsg reports the result of a clipboard copy.
type CopiedMsg struct {
	Err error
}

// ExportedMsg reports where /export wrote the conversation.
type ExportedMsg struct {
	Path string
	Err  error
}

// ConfigReloadedMsg delivers a config file change.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// clearNoticeMsg expires a status bar notice.
type clearNoticeMsg struct {
	id int
}
