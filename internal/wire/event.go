// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wire

import "encoding/json"

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType is the value of the "type" field inside a data frame.
type EventType string

const (
	TypeTextDelta  EventType = "text-delta"
	TypeToolCall   EventType = "tool-call"
	TypeToolResult EventType = "tool-result"
)

// FrameData is the only frame type that carries events.
const FrameData = "0"

// Event is one decoded frame. The set of implementations is closed:
// TextDelta, ToolCall and ToolResult.
type Event interface {
	// Type returns the wire name of the event kind.
	Type() EventType
	isEvent()
}

// TextDelta is a fragment of assistant text.
type TextDelta struct {
	Text string
}

// ToolCall announces a tool invocation. Args is kept as raw JSON.
type ToolCall struct {
	ToolCallID string
	ToolName   string
	Args       json.RawMessage
}

// ToolResult carries the result for a previously announced ToolCall.
type ToolResult struct {
	ToolCallID string
	Result     json.RawMessage
}

func (TextDelta) Type() EventType  { return TypeTextDelta }
func (ToolCall) Type() EventType   { return TypeToolCall }
func (ToolResult) Type() EventType { return TypeToolResult }

func (TextDelta) isEvent()  {}
func (ToolCall) isEvent()   {}
func (ToolResult) isEvent() {}

// =============================================================================
// PAYLOAD
// =============================================================================

// payload is the JSON object carried by a data frame. All kinds share one
// struct so a single Unmarshal classifies the line.
type payload struct {
	Type       EventType       `json:"type"`
	TextDelta  *string         `json:"textDelta,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// toEvent converts a decoded payload into its Event. Unknown kinds and
// payloads missing their identifying fields report false.
func (p *payload) toEvent() (Event, bool) {
	switch p.Type {
	case TypeTextDelta:
		if p.TextDelta == nil {
			return nil, false
		}
		return TextDelta{Text: *p.TextDelta}, true
	case TypeToolCall:
		if p.ToolCallID == "" {
			return nil, false
		}
		return ToolCall{ToolCallID: p.ToolCallID, ToolName: p.ToolName, Args: cloneRaw(p.Args)}, true
	case TypeToolResult:
		if p.ToolCallID == "" {
			return nil, false
		}
		return ToolResult{ToolCallID: p.ToolCallID, Result: cloneRaw(p.Result)}, true
	default:
		// Future kinds are skipped rather than treated as errors.
		return nil, false
	}
}

// fromEvent builds the payload for encoding.
func fromEvent(ev Event) payload {
	switch e := ev.(type) {
	case TextDelta:
		text := e.Text
		return payload{Type: TypeTextDelta, TextDelta: &text}
	case ToolCall:
		return payload{Type: TypeToolCall, ToolCallID: e.ToolCallID, ToolName: e.ToolName, Args: orEmptyObject(e.Args)}
	case ToolResult:
		return payload{Type: TypeToolResult, ToolCallID: e.ToolCallID, Result: orEmptyObject(e.Result)}
	default:
		return payload{}
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
