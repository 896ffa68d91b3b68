// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	parts := []string{
		m.header.View(),
		m.viewport.View(),
		m.renderInput(),
	}
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	}
	parts = append(parts, m.status.View())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderInput draws the input box, greyed out while a reply streams.
func (m Model) renderInput() string {
	width := m.width - 2
	if width < 10 {
		width = 10
	}

	if m.busy {
		hint := m.spinner.View() + " " + m.theme.Muted.Render("Waiting for the reply... esc to stop")
		return m.theme.InputDisabled.Width(width).Render(hint)
	}
	return m.theme.InputBox.Width(width).Render(m.input.View())
}
