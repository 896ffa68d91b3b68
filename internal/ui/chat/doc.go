// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat view for souq-assist.

The Model is a Bubble Tea model around a chatclient.Client. Pressing Enter
starts a send on its own goroutine; the transcript's change callback feeds
a coalescing channel so streamed text is redrawn as it arrives without
flooding the event loop. While a reply streams the input is disabled and a
spinner runs; Esc or Ctrl+C cancels the send through its context, keeping
whatever text already arrived.

# Files

  - model.go: Model, Options and construction
  - update.go: key handling, send lifecycle, notices
  - view.go: layout of header, transcript, input and status bar
  - commands.go: slash commands (/1../3 quick actions, /new, /export ...)
  - streaming.go: change notifier and the send command
  - cancel.go: cancel function shared across Model copies
  - keys.go: key bindings and help
  - messages.go: Bubble Tea message types

# Persistence

When a ConversationStore is supplied, the transcript is saved after every
reply (storage.auto_save) and when /new starts a fresh conversation.

# Live config

When Options.ConfigPath is set, edits to the config file toggle tool
results, markdown and autosave without restarting.
*/
package chat
