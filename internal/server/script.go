// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/wire"
)

// ============================================================================
// REQUEST / REPLY TYPES
// ============================================================================

// ChatRequest is the body accepted by POST /api/chat.
type ChatRequest struct {
	Message  string               `json:"message"`
	Messages []model.HistoryEntry `json:"messages"`
	UserID   *string              `json:"userId"`
}

// LoggedIn reports whether the request carries a user identity.
func (r ChatRequest) LoggedIn() bool {
	return r.UserID != nil && *r.UserID != ""
}

// Reply is a scripted response. A Status other than 200 is sent with an
// empty body and Events are ignored.
type Reply struct {
	Status int
	Events []wire.Event
	// Raw lines are written verbatim after Events, to exercise client
	// tolerance of malformed framing.
	Raw []string
}

// Scripter chooses the reply for a request.
type Scripter func(req ChatRequest) Reply

// ============================================================================
// CATALOG FIXTURES
// ============================================================================

var fixtureResources = []map[string]any{
	{"id": "res-101", "title": "Commercial contract review", "category": "Legal", "price": 750,
		"city": "Riyadh", "rating": 4.8, "provider": map[string]any{"name": "Al Noor Law Firm"}},
	{"id": "res-102", "title": "Company formation package", "category": "Legal", "price": 2500,
		"city": "Jeddah", "rating": 4.6, "provider": map[string]any{"name": "Hijaz Legal"}},
	{"id": "res-201", "title": "Office space, King Fahd Road", "category": "Real estate", "price": "9000",
		"city": "Riyadh", "rating": 4.2},
	{"id": "res-301", "title": "Trademark registration", "category": "Intellectual property", "price": 1200,
		"city": "Dammam", "rating": 4.9, "provider": map[string]any{"name": "Eastern IP"}},
}

var fixtureCategories = []any{
	"Legal",
	"Real estate",
	map[string]any{"name": "Intellectual property", "slug": "ip"},
	"Business services",
}

// ============================================================================
// DEFAULT SCRIPT
// ============================================================================

// DefaultScripter answers by keyword, in the order: failure triggers,
// categories, resource search, single resource, legal advice, greeting.
func DefaultScripter(req ChatRequest) Reply {
	text := strings.ToLower(req.Message)

	switch {
	case strings.Contains(text, "#fail"):
		return Reply{Status: http.StatusInternalServerError}

	case strings.Contains(text, "#empty"):
		return Reply{}

	case strings.Contains(text, "#garbled"):
		return Reply{
			Events: TextChunks("Some lines were damaged, but this one arrived."),
			Raw:    []string{`0:{"type":"text-delta",`, "not a frame", `9:{"type":"text-delta","textDelta":"x"}`},
		}

	case containsAny(text, "categor", "فئات", "تصنيف"):
		return toolReply("call_categories", "listCategories",
			map[string]any{},
			map[string]any{"categories": fixtureCategories},
			"We offer services in these categories. Pick one to browse its listings.")

	case containsAny(text, "find", "search", "lawyer", "office", "ابحث", "محامي"):
		return toolReply("call_search", "searchResources",
			map[string]any{"query": req.Message, "limit": len(fixtureResources)},
			map[string]any{"resources": fixtureResources, "total": 12},
			"I found several resources that match. The top results are listed below, and you can ask for pricing or book a consultation.")

	case containsAny(text, "trademark", "علامة"):
		return toolReply("call_resource", "getResource",
			map[string]any{"id": "res-301"},
			map[string]any{"resource": fixtureResources[3]},
			"Here are the details of our trademark registration service, including its price.")

	case containsAny(text, "legal", "contract", "قانون", "عقد"):
		advice := "A licensed lawyer can review your contract and advise on your legal position."
		if !req.LoggedIn() {
			advice += " Sign in to book a consultation."
		}
		return Reply{Events: TextChunks(advice)}

	default:
		return Reply{Events: TextChunks("Marhaba! I can search resources, show categories, or help with a legal question. What do you need today?")}
	}
}

// toolReply is a tool call, its result, then the prose answer.
func toolReply(callID, toolName string, args, result any, text string) Reply {
	argsJSON, _ := json.Marshal(args)
	resultJSON, _ := json.Marshal(result)

	events := []wire.Event{
		wire.ToolCall{ToolCallID: callID, ToolName: toolName, Args: argsJSON},
		wire.ToolResult{ToolCallID: callID, Result: resultJSON},
	}
	return Reply{Events: append(events, TextChunks(text)...)}
}

// TextChunks splits text into word-sized text-delta events, keeping the
// separating spaces so the chunks concatenate back to text.
func TextChunks(text string) []wire.Event {
	var events []wire.Event
	start := 0
	for i, r := range text {
		if r == ' ' && i > start {
			events = append(events, wire.TextDelta{Text: text[start:i]})
			start = i
		}
	}
	if start < len(text) {
		events = append(events, wire.TextDelta{Text: text[start:]})
	}
	return events
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
