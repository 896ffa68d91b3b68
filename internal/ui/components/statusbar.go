// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/souq-assist/internal/ui/styles"
	"github.com/jeranaias/souq-assist/internal/util"
)

// Status is the chat state shown in the status bar.
type Status int

const (
	StatusReady Status = iota
	StatusSending
	StatusFailed
	StatusCancelled
)

// String returns the status label.
func (s Status) String() string {
	switch s {
	case StatusSending:
		return "Thinking"
	case StatusFailed:
		return "Connection problem"
	case StatusCancelled:
		return "Stopped"
	default:
		return "Ready"
	}
}

// Icon returns the ASCII indicator for the status.
func (s Status) Icon() string {
	switch s {
	case StatusFailed:
		return styles.StatusIndicators.Error
	case StatusCancelled:
		return styles.StatusIndicators.Warning
	case StatusSending:
		return ""
	default:
		return styles.StatusIndicators.Success
	}
}

// StatusBar is the bottom line: state, counts and key hints.
type StatusBar struct {
	width    int
	status   Status
	spinner  string
	messages int
	notice   string
	theme    *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, width: 80}
}

// SetWidth sets the bar width.
func (s *StatusBar) SetWidth(width int) { s.width = width }

// SetStatus sets the chat state.
func (s *StatusBar) SetStatus(status Status) { s.status = status }

// SetSpinner sets the spinner frame shown while sending.
func (s *StatusBar) SetSpinner(frame string) { s.spinner = frame }

// SetMessageCount sets the transcript length.
func (s *StatusBar) SetMessageCount(n int) { s.messages = n }

// SetNotice sets a transient note such as "Copied".
func (s *StatusBar) SetNotice(notice string) { s.notice = notice }

// View renders the status bar.
func (s *StatusBar) View() string {
	state := s.status.Icon()
	if s.status == StatusSending {
		state = s.spinner
	}
	left := strings.TrimSpace(state + " " + s.status.String())
	if s.messages > 0 {
		left += " · " + toStr(s.messages) + " messages"
	}
	if s.notice != "" {
		left += " · " + s.notice
	}

	var hints string
	switch {
	case s.width < 60:
		hints = "esc stop"
	case s.status == StatusSending:
		hints = s.hint("esc", "stop") + "  " + s.hint("ctrl+c", "quit")
	default:
		hints = s.hint("enter", "send") + "  " + s.hint("/1-3", "action") + "  " +
			s.hint("ctrl+y", "copy") + "  " + s.hint("ctrl+t", "tools") + "  " + s.hint("ctrl+c", "quit")
	}

	inner := s.width - 2
	gap := inner - util.StringWidth(left) - lipgloss.Width(hints)
	if gap < 1 {
		return s.theme.StatusBar.Width(s.width).MaxWidth(s.width).Render(util.TruncateWidth(left, inner))
	}
	return s.theme.StatusBar.Width(s.width).MaxWidth(s.width).Render(left + strings.Repeat(" ", gap) + hints)
}

func (s *StatusBar) hint(key, desc string) string {
	return s.theme.ShortcutKey.Render(key) + " " + desc
}
