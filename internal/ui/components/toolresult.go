// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/summary"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
	"github.com/jeranaias/souq-assist/internal/util"
)

// =============================================================================
// TOOL RESULT VIEW
// =============================================================================

// ToolResultView renders one tool result as a ranked list, category tags,
// or a detail card. Results that match none of these render nothing.
type ToolResultView struct {
	toolName     string
	result       json.RawMessage
	summary      summary.Summary
	expanded     bool
	maxCollapsed int // Resources shown before "... N more"
	width        int
	theme        *styles.Theme
}

// NewToolResultView creates a new tool result view.
func NewToolResultView(theme *styles.Theme) *ToolResultView {
	return &ToolResultView{
		maxCollapsed: 5,
		width:        80,
		theme:        theme,
	}
}

// SetInvocation sets the invocation to render. Invocations still waiting
// for their result render nothing.
func (v *ToolResultView) SetInvocation(inv *model.ToolInvocation) {
	if inv == nil || !inv.HasResult() {
		v.SetResult("", nil)
		return
	}
	v.SetResult(inv.ToolName, inv.Result)
}

// SetResult sets the tool name and raw result.
func (v *ToolResultView) SetResult(toolName string, result json.RawMessage) {
	v.toolName = toolName
	v.result = result
	v.summary = summary.Summarize(toolName, result)
}

// SetWidth sets the render width.
func (v *ToolResultView) SetWidth(width int) {
	v.width = width
}

// Toggle toggles between collapsed and expanded.
func (v *ToolResultView) Toggle() {
	v.expanded = !v.expanded
}

// IsExpanded reports whether the full list and raw payload are shown.
func (v *ToolResultView) IsExpanded() bool {
	return v.expanded
}

// SetExpanded sets the expanded state.
func (v *ToolResultView) SetExpanded(expanded bool) {
	v.expanded = expanded
}

// Kind returns the template the result was classified as.
func (v *ToolResultView) Kind() summary.Kind {
	return v.summary.Kind
}

// View renders the tool result.
func (v *ToolResultView) View() string {
	var body string
	switch v.summary.Kind {
	case summary.KindResourceList:
		body = v.renderResourceList()
	case summary.KindCategoryTags:
		body = v.renderCategoryTags()
	case summary.KindResourceDetail:
		return v.renderDetail(v.summary.Resource)
	default:
		return ""
	}

	if v.expanded {
		body += "\n" + RenderJSONBlock(v.result, v.width-4)
	}
	return v.theme.ToolBox.Render(body)
}

// RenderToolResult renders a single result. The output depends only on its
// arguments.
func RenderToolResult(theme *styles.Theme, toolName string, result json.RawMessage, width int) string {
	v := NewToolResultView(theme)
	v.SetWidth(width)
	v.SetResult(toolName, result)
	return v.View()
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (v *ToolResultView) renderResourceList() string {
	var b strings.Builder
	s := v.summary

	header := v.theme.ToolName.Render(s.ToolName)
	switch {
	case len(s.Resources) == 0:
		header += v.theme.Meta.Render("  no matching resources")
	case s.Total > len(s.Resources):
		header += v.theme.Meta.Render("  showing " + toStr(len(s.Resources)) + " of " + toStr(s.Total))
	default:
		header += v.theme.Meta.Render("  " + toStr(len(s.Resources)) + " results")
	}
	b.WriteString(header)

	shown := s.Resources
	if !v.expanded && len(shown) > v.maxCollapsed {
		shown = shown[:v.maxCollapsed]
	}

	titleWidth := v.width - 24
	if titleWidth < 16 {
		titleWidth = 16
	}

	for _, r := range shown {
		b.WriteString("\n")
		b.WriteString(v.theme.RankNumber.Render(toStr(r.Rank) + "."))
		b.WriteString(" ")
		b.WriteString(v.theme.ResourceHdr.Render(util.TruncateWidth(resourceTitle(r), titleWidth)))
		if r.Price != "" {
			b.WriteString("  ")
			b.WriteString(v.theme.Price.Render(r.Price))
		}
		if meta := resourceMeta(r); meta != "" {
			b.WriteString("\n   ")
			b.WriteString(v.theme.Meta.Render(util.TruncateWidth(meta, v.width-8)))
		}
	}

	if hidden := len(s.Resources) - len(shown); hidden > 0 {
		b.WriteString("\n")
		b.WriteString(v.theme.Muted.Render("... " + toStr(hidden) + " more"))
	}
	return b.String()
}

func (v *ToolResultView) renderCategoryTags() string {
	var b strings.Builder
	b.WriteString(v.theme.ToolName.Render(v.summary.ToolName))
	if len(v.summary.Categories) == 0 {
		b.WriteString(v.theme.Meta.Render("  no categories"))
		return b.String()
	}

	// Lay tags out in rows that fit the width.
	maxRow := v.width - 6
	row, rowWidth := []string{}, 0
	flush := func() {
		if len(row) > 0 {
			b.WriteString("\n")
			b.WriteString(strings.Join(row, " "))
			row, rowWidth = row[:0], 0
		}
	}
	for _, name := range v.summary.Categories {
		tag := v.theme.Tag.Render(name)
		w := lipgloss.Width(tag)
		if rowWidth > 0 && rowWidth+1+w > maxRow {
			flush()
		}
		row = append(row, tag)
		rowWidth += w + 1
	}
	flush()
	return b.String()
}

func (v *ToolResultView) renderDetail(r *summary.Resource) string {
	if r == nil {
		return ""
	}

	var lines []string
	lines = append(lines, v.theme.ResourceHdr.Render(resourceTitle(*r)))
	if r.Price != "" {
		lines = append(lines, v.theme.Price.Render(r.Price))
	}
	if r.Description != "" {
		lines = append(lines, wordWrap(r.Description, v.cardWidth()-4))
	}
	if meta := resourceMeta(*r); meta != "" {
		lines = append(lines, v.theme.Meta.Render(meta))
	}
	if r.URL != "" {
		lines = append(lines, v.theme.ActionLabel.Render(r.URL))
	}

	body := strings.Join(lines, "\n")
	if v.expanded {
		body += "\n" + RenderJSONBlock(v.result, v.cardWidth())
	}

	header := v.theme.ToolName.Render(v.summary.ToolName)
	card := v.theme.Card.Width(v.cardWidth()).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, "  "+header, card)
}

func (v *ToolResultView) cardWidth() int {
	w := v.width - 6
	if w < 24 {
		w = 24
	}
	if w > 72 {
		w = 72
	}
	return w
}

// resourceTitle falls back to the ID for untitled listings.
func resourceTitle(r summary.Resource) string {
	if r.Title != "" {
		return r.Title
	}
	if r.ID != "" {
		return r.ID
	}
	return "Untitled"
}

// resourceMeta joins the secondary fields shown under a title.
func resourceMeta(r summary.Resource) string {
	var parts []string
	for _, p := range []string{r.Category, r.Location, r.Provider, formatRating(r.Rating)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

// =============================================================================
// TOOL RESULT LIST
// =============================================================================

// ToolResultList renders every completed invocation on a message.
type ToolResultList struct {
	results []*ToolResultView
	theme   *styles.Theme
	width   int
}

// NewToolResultList creates a new tool result list.
func NewToolResultList(theme *styles.Theme) *ToolResultList {
	return &ToolResultList{theme: theme, width: 80}
}

// SetInvocations replaces the list contents, keeping each entry's expanded
// state when the same position is re-rendered.
func (l *ToolResultList) SetInvocations(invs []*model.ToolInvocation) {
	views := make([]*ToolResultView, 0, len(invs))
	for i, inv := range invs {
		view := NewToolResultView(l.theme)
		view.SetWidth(l.width)
		view.SetInvocation(inv)
		if i < len(l.results) {
			view.SetExpanded(l.results[i].IsExpanded())
		}
		views = append(views, view)
	}
	l.results = views
}

// SetWidth sets the width for all results.
func (l *ToolResultList) SetWidth(width int) {
	l.width = width
	for _, r := range l.results {
		r.SetWidth(width)
	}
}

// Count returns the number of results.
func (l *ToolResultList) Count() int {
	return len(l.results)
}

// ToggleAll expands or collapses every result together.
func (l *ToolResultList) ToggleAll() {
	expand := true
	if len(l.results) > 0 {
		expand = !l.results[0].IsExpanded()
	}
	for _, r := range l.results {
		r.SetExpanded(expand)
	}
}

// View renders all results, skipping those that render nothing.
func (l *ToolResultList) View() string {
	var views []string
	for _, r := range l.results {
		if out := r.View(); out != "" {
			views = append(views, out)
		}
	}
	return strings.Join(views, "\n")
}
