// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

// =============================================================================
// RAW JSON BLOCK
// =============================================================================

// maxRawLines caps the raw payload shown under an expanded tool result.
const maxRawLines = 40

// RenderJSONBlock pretty-prints raw and highlights it for the terminal.
// Invalid JSON is shown as-is.
func RenderJSONBlock(raw json.RawMessage, maxWidth int) string {
	if len(raw) == 0 {
		return ""
	}

	code := string(raw)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err == nil {
		code = pretty.String()
	}

	lines := strings.Split(code, "\n")
	if len(lines) > maxRawLines {
		more := len(lines) - maxRawLines
		lines = append(lines[:maxRawLines], "... ("+toStr(more)+" more lines)")
	}

	width := maxWidth - 4
	if width < 20 {
		width = 20
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(width).
		Render(highlightCode(strings.Join(lines, "\n"), "json"))
}

// highlightCode applies syntax highlighting using chroma, returning code
// unchanged if highlighting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
