// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies with glamour, keeping one
// renderer per wrap width. glamour renderers are not safe for concurrent
// Render calls, so rendering is serialized.
type MarkdownRenderer struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for the "dark" or "light" glamour
// style.
func NewMarkdownRenderer(dark bool) *MarkdownRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	return &MarkdownRenderer{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render renders text wrapped at width. On any glamour error the text is
// word-wrapped and returned plain.
func (r *MarkdownRenderer) Render(text string, width int) string {
	if r == nil || strings.TrimSpace(text) == "" {
		return wordWrap(text, width)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tr, ok := r.renderers[width]
	if !ok {
		var err error
		tr, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
			glamour.WithEmoji(),
		)
		if err != nil {
			return wordWrap(text, width)
		}
		r.renderers[width] = tr
	}

	out, err := tr.Render(text)
	if err != nil {
		return wordWrap(text, width)
	}
	return strings.Trim(out, "\n")
}
