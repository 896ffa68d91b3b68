// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Message: one turn with role, content, tool invocations and quick actions
//   - ToolInvocation: a tool call embedded in an assistant turn; result set once
//   - Transcript: mutex-guarded controller owning the ordered message list
//   - Conversation: persisted snapshot of a transcript
//
// # Usage
//
//	tr := model.NewTranscript()
//	tr.AppendUser("Do you list commercial lawyers in Riyadh?")
//	tr.RecordToolCall("t1", "searchResources", args)
//	tr.AppendDelta("Here are ")
//	tr.RecordToolResult("t1", result)
//	msg := tr.FinalizeAssistant(model.Finalization{Fallback: "..."})
package model
