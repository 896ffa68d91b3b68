// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/souq-assist/internal/model"
)

func kinds(as []model.Action) []model.ActionKind {
	out := make([]model.ActionKind, 0, len(as))
	for _, a := range as {
		out = append(out, a.Kind)
	}
	return out
}

func TestSuggestActions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		loggedIn bool
		want     []model.ActionKind
	}{
		{"empty", "", false, []model.ActionKind{}},
		{"no keywords", "Hello! How can I help?", false, []model.ActionKind{}},
		{"resources", "I found 3 Resources matching your search.", false,
			[]model.ActionKind{model.ActionSearchResources}},
		{"categories stem", "Here are the main CATEGORIES.", true,
			[]model.ActionKind{model.ActionBrowseCategories}},
		{"legal logged out", "A lawyer can review your contract.", false,
			[]model.ActionKind{model.ActionSignIn}},
		{"legal logged in", "A lawyer can review your contract.", true,
			[]model.ActionKind{model.ActionBookConsultation}},
		{"arabic consultation", "يمكنك حجز استشارة قانونية", true,
			[]model.ActionKind{model.ActionBookConsultation}},
		{"arabic resources and pricing", "وجدت موارد بأسعار مناسبة", false,
			[]model.ActionKind{model.ActionSearchResources, model.ActionViewPricing}},
		{"capped at max", "resources in this category, a lawyer consultation, pricing and support", true,
			[]model.ActionKind{model.ActionSearchResources, model.ActionBrowseCategories, model.ActionBookConsultation}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SuggestActions(tc.text, tc.loggedIn)
			assert.Equal(t, tc.want, kinds(got))
			assert.LessOrEqual(t, len(got), MaxActions)
		})
	}
}

func TestSuggestActions_Deterministic(t *testing.T) {
	text := "Browse the legal services category for pricing"
	first := SuggestActions(text, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SuggestActions(text, true))
	}
}

func TestSupportAction(t *testing.T) {
	a := SupportAction()
	assert.Equal(t, model.ActionContactSupport, a.Kind)
	assert.NotEmpty(t, a.Label)
}

func TestFind(t *testing.T) {
	buttons := []model.Action{SupportAction(), {Kind: model.ActionViewPricing, Label: "View pricing"}}

	got, ok := Find(buttons, "  view PRICING ")
	assert.True(t, ok)
	assert.Equal(t, model.ActionViewPricing, got.Kind)

	got, ok = Find(buttons, "contact_support")
	assert.True(t, ok)
	assert.Equal(t, model.ActionContactSupport, got.Kind)

	_, ok = Find(buttons, "nothing")
	assert.False(t, ok)
}
