// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/souq-assist/internal/session"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
	"github.com/jeranaias/souq-assist/internal/util"
)

// AppTitle is shown at the left of the header.
const AppTitle = "Souq Assist"

// Header is the one-line bar at the top of the chat view.
type Header struct {
	width    int
	session  session.Context
	endpoint string
	theme    *styles.Theme
}

// NewHeader creates a header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{theme: theme, width: 80}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetSession sets whose session is shown.
func (h *Header) SetSession(sess session.Context) {
	h.session = sess
}

// SetEndpoint sets the chat endpoint shown on wide terminals.
func (h *Header) SetEndpoint(endpoint string) {
	h.endpoint = endpoint
}

// View renders the header.
func (h *Header) View() string {
	who := "Guest"
	if h.session.IsLoggedIn() {
		who = "Signed in as " + h.session.UserID
	}

	left := AppTitle + "  " + who
	right := ""
	if h.width >= 100 && h.endpoint != "" {
		right = h.endpoint
	}

	inner := h.width - 2
	if inner < 10 {
		inner = 10
	}
	gap := inner - util.StringWidth(left) - util.StringWidth(right)
	if gap < 1 {
		left = util.TruncateWidth(left, inner-util.StringWidth(right)-1)
		gap = 1
	}

	line := util.PadRight(left, util.StringWidth(left)+gap) + right
	return h.theme.Header.Width(h.width).MaxWidth(h.width).Render(line)
}

// Height returns the rendered header height.
func (h *Header) Height() int {
	return lipgloss.Height(h.View())
}
