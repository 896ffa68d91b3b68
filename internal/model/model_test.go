// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("other"), "other"},
	}
	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestNewMessage_IDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := NewUserMessage("hi")
		if !strings.HasPrefix(msg.ID, "msg_") {
			t.Fatalf("ID = %q, want msg_ prefix", msg.ID)
		}
		if seen[msg.ID] {
			t.Fatalf("duplicate ID %q", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestMessage_StreamingContent(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("Hel")
	msg.AppendToken("lo")

	if got := msg.GetDisplayContent(); got != "Hello" {
		t.Errorf("GetDisplayContent() = %q, want %q", got, "Hello")
	}
	if msg.Content != "" {
		t.Errorf("Content = %q before finalize, want empty", msg.Content)
	}

	msg.finalize("fallback")
	assert.False(t, msg.IsStreaming)
	assert.Equal(t, "Hello", msg.Content)

	// Finalized content is immutable.
	msg.AppendToken("!")
	assert.Equal(t, "Hello", msg.GetDisplayContent())
}

func TestAction_QueryText(t *testing.T) {
	assert.Equal(t, "Show categories", Action{Label: "Browse", Query: "Show categories"}.QueryText())
	assert.Equal(t, "Sign in", Action{Label: "Sign in"}.QueryText())
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("هل يوجد محامي\nمتخصص في العقود التجارية؟")
	got := msg.Preview(10)
	if len([]rune(got)) != 10 {
		t.Errorf("Preview(10) has %d runes, want 10", len([]rune(got)))
	}
	if strings.Contains(got, "\n") {
		t.Errorf("Preview should collapse newlines, got %q", got)
	}
	if short := NewUserMessage("hi").Preview(10); short != "hi" {
		t.Errorf("Preview of short content = %q", short)
	}
}

func TestMessage_CloneIsDeep(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("partial")
	msg.ToolInvocations = []*ToolInvocation{{ToolCallID: "t1", ToolName: "search", Args: json.RawMessage(`{"q":"x"}`)}}
	msg.Buttons = []Action{{Kind: ActionContactSupport, Label: "Support"}}

	c := msg.Clone()
	assert.Equal(t, "partial", c.GetDisplayContent())

	c.ToolInvocations[0].ToolName = "changed"
	c.Buttons[0].Label = "changed"
	c.AppendToken(" more")

	assert.Equal(t, "search", msg.ToolInvocations[0].ToolName)
	assert.Equal(t, "Support", msg.Buttons[0].Label)
	assert.Equal(t, "partial", msg.GetDisplayContent())
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_UserAndAssistantPairing(t *testing.T) {
	tr := NewTranscript()

	_, err := tr.AppendUser("Hello")
	require.NoError(t, err)
	tr.AppendDelta("Hi ")
	tr.AppendDelta("there")
	require.True(t, tr.InFlight())

	final := tr.FinalizeAssistant(Finalization{Fallback: "fallback"})
	assert.Equal(t, "Hi there", final.Content)
	assert.False(t, tr.InFlight())

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", tr.Snapshot().Title)
}

func TestTranscript_AppendUserWhileInFlight(t *testing.T) {
	tr := NewTranscript()
	_, err := tr.BeginAssistant()
	require.NoError(t, err)

	_, err = tr.AppendUser("second")
	require.ErrorIs(t, err, ErrInFlight)
	_, err = tr.BeginAssistant()
	require.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, 1, tr.Len())
}

func TestTranscript_FinalizeFallback(t *testing.T) {
	tests := []struct {
		name     string
		deltas   []string
		fallback string
		want     string
	}{
		{"empty stream", nil, "sorry", "sorry"},
		{"whitespace kept", []string{"  ", "\n"}, "sorry", "  \n"},
		{"content kept", []string{"ok"}, "sorry", "ok"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTranscript()
			for _, d := range tc.deltas {
				tr.AppendDelta(d)
			}
			got := tr.FinalizeAssistant(Finalization{Fallback: tc.fallback})
			if got.Content != tc.want {
				t.Errorf("Content = %q, want %q", got.Content, tc.want)
			}
		})
	}
}

func TestTranscript_FinalizeWithoutInFlightCreatesMessage(t *testing.T) {
	tr := NewTranscript()
	_, _ = tr.AppendUser("q")

	msg := tr.FinalizeAssistant(Finalization{
		Fallback: "failed",
		Buttons:  []Action{{Kind: ActionContactSupport, Label: "Contact support"}},
		Failed:   true,
	})

	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, "failed", msg.Content)
	assert.True(t, msg.Failed)
	assert.Empty(t, msg.ToolInvocations)
	require.Len(t, msg.Buttons, 1)
}

func TestTranscript_ToolCorrelation(t *testing.T) {
	tr := NewTranscript()
	require.True(t, tr.RecordToolCall("t1", "searchResources", json.RawMessage(`{"q":"lawyer"}`)))
	tr.AppendDelta("Here you go")

	assert.True(t, tr.RecordToolResult("t1", json.RawMessage(`{"resources":[]}`)))
	assert.False(t, tr.RecordToolResult("t1", json.RawMessage(`{"resources":[1]}`)), "second result must be ignored")
	assert.False(t, tr.RecordToolResult("t2", json.RawMessage(`{}`)), "unknown id must be ignored")
	assert.False(t, tr.RecordToolCall("t1", "again", nil), "duplicate call id must be ignored")

	msg := tr.FinalizeAssistant(Finalization{})
	require.Len(t, msg.ToolInvocations, 1)
	inv := msg.ToolInvocations[0]
	assert.Equal(t, "t1", inv.ToolCallID)
	assert.Equal(t, "searchResources", inv.ToolName)
	assert.JSONEq(t, `{"resources":[]}`, string(inv.Result))
}

func TestTranscript_NullResultDoesNotCount(t *testing.T) {
	tr := NewTranscript()
	require.True(t, tr.RecordToolCall("t1", "getResource", nil))

	assert.False(t, tr.RecordToolResult("t1", nil))
	assert.False(t, tr.RecordToolResult("t1", json.RawMessage(" null ")))
	assert.True(t, tr.RecordToolResult("t1", json.RawMessage(`{"a":1}`)))

	msg := tr.FinalizeAssistant(Finalization{})
	require.Len(t, msg.ToolInvocations, 1)
	assert.True(t, msg.ToolInvocations[0].HasResult())
	assert.JSONEq(t, `{"a":1}`, string(msg.ToolInvocations[0].Result))
}

func TestTranscript_AppendAssistant(t *testing.T) {
	tr := NewTranscript()
	_, err := tr.AppendUser("q")
	require.NoError(t, err)

	buttons := []Action{{Kind: ActionContactSupport, Label: "Contact support"}}
	msg, err := tr.AppendAssistant("offline", buttons, true)
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "offline", msg.Content)
	assert.True(t, msg.Failed)
	assert.False(t, msg.IsStreaming)
	assert.Equal(t, buttons, msg.Buttons)
	assert.False(t, tr.InFlight())
	assert.Equal(t, 2, tr.Len())

	buttons[0].Label = "changed"
	assert.Equal(t, "Contact support", tr.Last().Buttons[0].Label, "buttons are copied")

	tr.AppendDelta("streaming")
	_, err = tr.AppendAssistant("late", nil, false)
	require.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, 3, tr.Len())
}

func TestTranscript_ToolResultWithoutInFlight(t *testing.T) {
	tr := NewTranscript()
	assert.False(t, tr.RecordToolResult("t1", json.RawMessage(`{}`)))
	assert.Equal(t, 0, tr.Len())
}

func TestTranscript_HistorySkipsInFlight(t *testing.T) {
	tr := NewTranscript()
	_, _ = tr.AppendUser("one")
	tr.AppendDelta("two")
	tr.FinalizeAssistant(Finalization{})
	_, _ = tr.AppendUser("three")
	tr.AppendDelta("partial")

	hist := tr.History()
	require.Len(t, hist, 3)
	assert.Equal(t, HistoryEntry{Role: RoleUser, Content: "one"}, hist[0])
	assert.Equal(t, HistoryEntry{Role: RoleAssistant, Content: "two"}, hist[1])
	assert.Equal(t, HistoryEntry{Role: RoleUser, Content: "three"}, hist[2])
}

func TestTranscript_SnapshotsAreIsolated(t *testing.T) {
	tr := NewTranscript()
	_, _ = tr.AppendUser("hello")

	msgs := tr.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "hello", tr.Messages()[0].Content)
}

func TestTranscript_OnChange(t *testing.T) {
	tr := NewTranscript()
	var mu sync.Mutex
	calls := 0
	tr.OnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	_, _ = tr.AppendUser("a")
	tr.AppendDelta("b")
	tr.FinalizeAssistant(Finalization{})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}

func TestTranscript_ResumeFromConversation(t *testing.T) {
	tr := NewTranscript()
	_, _ = tr.AppendUser("a")
	tr.AppendDelta("b")
	tr.FinalizeAssistant(Finalization{})

	resumed := NewTranscriptFrom(tr.Snapshot())
	assert.Equal(t, tr.ID(), resumed.ID())
	assert.Equal(t, 2, resumed.Len())
	assert.False(t, resumed.InFlight())

	_, err := resumed.AppendUser("c")
	require.NoError(t, err)
	assert.Equal(t, 3, resumed.Len())
	assert.Equal(t, 2, tr.Len())
}

func TestTranscript_ConcurrentReaders(t *testing.T) {
	tr := NewTranscript()
	_, _ = tr.AppendUser("q")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			tr.AppendDelta("x")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = tr.Messages()
			_ = tr.InFlightContent()
		}
	}()
	wg.Wait()

	msg := tr.FinalizeAssistant(Finalization{})
	assert.Equal(t, strings.Repeat("x", 200), msg.Content)
}
