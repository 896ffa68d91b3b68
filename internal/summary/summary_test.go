// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package summary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Kinds(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   Kind
	}{
		{"resources", `{"resources":[{"id":"r1","title":"Contract review"}]}`, KindResourceList},
		{"empty resources", `{"resources":[]}`, KindResourceList},
		{"categories", `{"categories":["Legal","Real estate"]}`, KindCategoryTags},
		{"single resource", `{"resource":{"id":"r1","title":"Notary"}}`, KindResourceDetail},
		{"resources wins over resource", `{"resources":[],"resource":{"id":"x"}}`, KindResourceList},
		{"resources not array", `{"resources":"none"}`, KindNone},
		{"resource not object", `{"resource":"r1"}`, KindNone},
		{"unrelated object", `{"ticketId":"T-1","status":"open"}`, KindNone},
		{"array result", `[1,2,3]`, KindNone},
		{"null", `null`, KindNone},
		{"invalid json", `{"resources":[`, KindNone},
		{"empty", ``, KindNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize("tool", json.RawMessage(tc.result))
			if got.Kind != tc.want {
				t.Errorf("Summarize(%s).Kind = %v, want %v", tc.result, got.Kind, tc.want)
			}
			assert.Equal(t, "tool", got.ToolName)
		})
	}
}

func TestSummarize_ResourceListRanked(t *testing.T) {
	result := `{
		"total": 12,
		"resources": [
			{"id": "r1", "title": "Commercial lawyer", "category": {"name": "Legal"}, "price": 500, "city": "Riyadh", "rating": 4.8},
			"skip-me",
			{"_id": "r2", "name": "مكتب محاماة", "category": "Legal", "price": "750.50", "currency": "USD", "provider": {"name": "Al Noor"}}
		]
	}`

	s := Summarize("searchResources", json.RawMessage(result))
	require.Equal(t, KindResourceList, s.Kind)
	require.Len(t, s.Resources, 2)
	assert.Equal(t, 12, s.Total)

	first := s.Resources[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "r1", first.ID)
	assert.Equal(t, "Commercial lawyer", first.Title)
	assert.Equal(t, "Legal", first.Category)
	assert.Equal(t, "500 SAR", first.Price)
	assert.Equal(t, "Riyadh", first.Location)
	assert.InDelta(t, 4.8, first.Rating, 0.001)

	second := s.Resources[1]
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, "r2", second.ID)
	assert.Equal(t, "مكتب محاماة", second.Title)
	assert.Equal(t, "750.50 USD", second.Price)
	assert.Equal(t, "Al Noor", second.Provider)
}

func TestSummarize_CategoryTags(t *testing.T) {
	s := Summarize("listCategories", json.RawMessage(`{"categories":["Legal",{"name":"Real estate"},{"slug":"tech"},42,"  "]}`))
	require.Equal(t, KindCategoryTags, s.Kind)
	assert.Equal(t, []string{"Legal", "Real estate", "tech"}, s.Categories)
}

func TestSummarize_Detail(t *testing.T) {
	s := Summarize("getResource", json.RawMessage(`{"resource":{"id":"r9","title":"Trademark filing","description":"Register a trademark","price":1200}}`))
	require.Equal(t, KindResourceDetail, s.Kind)
	require.NotNil(t, s.Resource)
	assert.Equal(t, 0, s.Resource.Rank)
	assert.Equal(t, "Trademark filing", s.Resource.Title)
	assert.Equal(t, "Register a trademark", s.Resource.Description)
	assert.Equal(t, "1200 SAR", s.Resource.Price)
}

func TestSummarize_Pure(t *testing.T) {
	raw := json.RawMessage(`{"resources":[{"id":"a","title":"A"},{"id":"b","title":"B"}]}`)
	assert.Equal(t, Summarize("t", raw), Summarize("t", raw))
	assert.Equal(t, `{"resources":[{"id":"a","title":"A"},{"id":"b","title":"B"}]}`, string(raw))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "resource-list", KindResourceList.String())
	assert.Equal(t, "category-tags", KindCategoryTags.String())
	assert.Equal(t, "resource-detail", KindResourceDetail.String())
}
