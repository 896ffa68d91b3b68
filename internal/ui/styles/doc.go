// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the souq-assist TUI.

Colors (colors.go) use Lip Gloss AdaptiveColor so the same token works on
light and dark terminals:

  - Palm - brand green for the assistant and borders
  - Sand - gold accent for prices and ratings
  - Sky - user label and quick actions
  - Rose - failures and the support prompt

Status text always carries a shape indicator ([OK], [X], [!], [i]) so it
never depends on color alone.

Theme (theme.go) builds every lipgloss.Style the chat view and components
use. NewThemeNamed("dark"|"light") forces a background; anything else asks
the terminal.
*/
package styles
