// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewThemeNamed.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER / STATUS
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderUser  lipgloss.Style
	StatusBar   lipgloss.Style
	ShortcutKey lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style
	FailedBody     lipgloss.Style
	Streaming      lipgloss.Style

	// ==========================================================================
	// QUICK ACTIONS
	// ==========================================================================

	ActionKey     lipgloss.Style
	ActionLabel   lipgloss.Style
	SupportAction lipgloss.Style

	// ==========================================================================
	// TOOL RESULTS
	// ==========================================================================

	ToolBox     lipgloss.Style
	ToolName    lipgloss.Style
	RankNumber  lipgloss.Style
	ResourceHdr lipgloss.Style
	Price       lipgloss.Style
	Meta        lipgloss.Style
	Tag         lipgloss.Style
	Card        lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputBox      lipgloss.Style
	InputDisabled lipgloss.Style
	InputPrompt   lipgloss.Style
	Muted         lipgloss.Style
}

// NewTheme creates a theme for the detected terminal background.
func NewTheme() *Theme {
	return NewThemeNamed(ThemeAuto)
}

// NewThemeNamed creates a theme, forcing a dark or light background when
// name is "dark" or "light". Any other name detects the background.
func NewThemeNamed(name string) *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	switch strings.ToLower(name) {
	case ThemeDark:
		t.IsDark = true
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		t.IsDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		t.IsDark = termenv.HasDarkBackground()
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(PalmDeep).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Palm)
	t.HeaderUser = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted).Background(SurfaceDim).Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Sky).Bold(true)

	t.UserLabel = lipgloss.NewStyle().Foreground(Sky).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Palm).Bold(true)
	t.SystemLabel = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.FailedBody = lipgloss.NewStyle().Foreground(Rose).PaddingLeft(2)
	t.Streaming = lipgloss.NewStyle().Foreground(TextSecondary).PaddingLeft(2)

	t.ActionKey = lipgloss.NewStyle().Foreground(TextInverse).Background(Sky).Bold(true).Padding(0, 1)
	t.ActionLabel = lipgloss.NewStyle().Foreground(Sky)
	t.SupportAction = lipgloss.NewStyle().Foreground(Rose).Underline(true)

	t.ToolBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Palm).
		BorderLeft(true).
		PaddingLeft(1).
		MarginLeft(2)
	t.ToolName = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.RankNumber = lipgloss.NewStyle().Foreground(Palm).Bold(true)
	t.ResourceHdr = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	t.Price = lipgloss.NewStyle().Foreground(Sand).Bold(true)
	t.Meta = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Tag = lipgloss.NewStyle().Foreground(TagFg).Background(TagBg).Padding(0, 1)
	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Sand).
		Padding(0, 1).
		MarginLeft(2)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Palm).
		Padding(0, 1)
	t.InputDisabled = t.InputBox.BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Palm).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
