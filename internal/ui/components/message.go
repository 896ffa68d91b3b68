// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

// =============================================================================
// MESSAGE VIEW
// =============================================================================

// MessageView renders one transcript message: a role line, the body, any
// tool results, and numbered quick actions.
type MessageView struct {
	Message       *model.Message
	Width         int
	ShowTimestamp bool
	ShowTools     bool
	ShowActions   bool // Only the latest reply offers actions
	Markdown      *MarkdownRenderer

	tools *ToolResultList
	theme *styles.Theme
}

// NewMessageView creates a view for msg.
func NewMessageView(msg *model.Message, theme *styles.Theme) *MessageView {
	if msg == nil {
		msg = model.NewSystemMessage("")
	}
	v := &MessageView{
		Message:       msg,
		Width:         80,
		ShowTimestamp: true,
		ShowTools:     true,
		tools:         NewToolResultList(theme),
		theme:         theme,
	}
	v.tools.SetInvocations(msg.ToolInvocations)
	return v
}

// SetWidth sets the render width.
func (v *MessageView) SetWidth(width int) {
	v.Width = width
	v.tools.SetWidth(width)
}

// ToggleTools expands or collapses the tool results.
func (v *MessageView) ToggleTools() {
	v.tools.ToggleAll()
}

// View renders the message.
func (v *MessageView) View() string {
	parts := []string{v.renderHeader()}

	if body := v.renderBody(); body != "" {
		parts = append(parts, body)
	}
	if v.ShowTools && v.tools.Count() > 0 {
		if tools := v.tools.View(); tools != "" {
			parts = append(parts, tools)
		}
	}
	if v.ShowActions && !v.Message.IsStreaming && len(v.Message.Buttons) > 0 {
		parts = append(parts, RenderActions(v.theme, v.Message.Buttons))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (v *MessageView) renderHeader() string {
	var label lipgloss.Style
	switch v.Message.Role {
	case model.RoleUser:
		label = v.theme.UserLabel
	case model.RoleAssistant:
		label = v.theme.AssistantLabel
	default:
		label = v.theme.SystemLabel
	}

	header := label.Render(v.Message.Role.DisplayName())
	if v.ShowTimestamp {
		if ts := formatTime(v.Message.Timestamp); ts != "" {
			header += " " + v.theme.Timestamp.Render(ts)
		}
	}
	return header
}

func (v *MessageView) renderBody() string {
	wrap := v.Width - 4
	if wrap < 20 {
		wrap = 20
	}

	msg := v.Message
	content := msg.GetDisplayContent()

	switch {
	case msg.IsStreaming:
		if content == "" {
			return v.theme.Streaming.Render("...")
		}
		return v.theme.Streaming.Render(wordWrap(content, wrap) + "▍")

	case msg.Failed:
		return v.theme.FailedBody.Render(wordWrap(styles.StatusIndicators.Error+" "+content, wrap))

	case content == "":
		return ""

	case msg.Role == model.RoleAssistant && v.Markdown != nil:
		return v.Markdown.Render(content, wrap)

	default:
		return v.theme.Body.Render(wordWrap(content, wrap))
	}
}

// =============================================================================
// QUICK ACTIONS
// =============================================================================

// RenderActions renders buttons as numbered chips. The numbers match
// the /1, /2 and /3 shortcuts.
func RenderActions(theme *styles.Theme, buttons []model.Action) string {
	if len(buttons) == 0 {
		return ""
	}

	chips := make([]string, 0, len(buttons))
	for i, b := range buttons {
		label := theme.ActionLabel
		if b.Kind == model.ActionContactSupport {
			label = theme.SupportAction
		}
		chips = append(chips, theme.ActionKey.Render(toStr(i+1))+label.Render(b.Label))
	}
	return "  " + strings.Join(chips, "   ")
}

// =============================================================================
// MESSAGE LIST
// =============================================================================

// RenderTranscript renders messages top to bottom, offering actions only
// on the last message.
func RenderTranscript(theme *styles.Theme, messages []*model.Message, width int, md *MarkdownRenderer, showTools bool) string {
	if len(messages) == 0 {
		return ""
	}

	views := make([]string, 0, len(messages))
	for i, msg := range messages {
		v := NewMessageView(msg, theme)
		v.SetWidth(width)
		v.Markdown = md
		v.ShowTools = showTools
		v.ShowActions = i == len(messages)-1
		views = append(views, v.View())
	}
	return strings.Join(views, "\n\n")
}
