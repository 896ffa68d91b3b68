// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the rendering pieces of the souq-assist chat view.

# Messages

MessageView (message.go) renders one transcript message: role line, body,
tool results and numbered quick actions. Assistant replies go through
MarkdownRenderer (markdown.go, glamour) when markdown is enabled. Failed
replies are shown in rose with an error indicator.

# Tool Results

ToolResultView (toolresult.go) renders a tool result by its summary kind:

  - resource-list: ranked "1. Title  750 SAR" rows with a meta line
  - category-tags: wrapped tag chips
  - resource-detail: a bordered card
  - none: nothing at all

Expanding a view (ctrl+t in the chat) adds the raw payload, highlighted by
chroma (codeblock.go). RenderToolResult is the pure entry point.

# Chrome

Header (header.go) and StatusBar (statusbar.go) frame the conversation.
*/
package components
