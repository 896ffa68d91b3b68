// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package summary maps a tool result to a presentation template.
//
// The mapping is a pure, total function of (toolName, result): a result with a
// "resources" array becomes a ranked list, one with a "categories" array
// becomes a tag list, one with a single "resource" object becomes a detail
// card, and anything else has no summary.
package summary

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind identifies the presentation template.
type Kind int

const (
	KindNone Kind = iota
	KindResourceList
	KindCategoryTags
	KindResourceDetail
)

// String returns the template name.
func (k Kind) String() string {
	switch k {
	case KindResourceList:
		return "resource-list"
	case KindCategoryTags:
		return "category-tags"
	case KindResourceDetail:
		return "resource-detail"
	default:
		return "none"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Resource is the renderable subset of a marketplace or consultancy listing.
type Resource struct {
	Rank        int     `json:"rank,omitempty"` // 1-based position in a list; 0 for detail cards
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       string  `json:"price,omitempty"`
	Location    string  `json:"location,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// Summary is the renderable form of a tool result.
type Summary struct {
	Kind       Kind       `json:"kind"`
	ToolName   string     `json:"toolName"`
	Resources  []Resource `json:"resources,omitempty"`
	Total      int        `json:"total,omitempty"` // Reported total when the result paginates, else len(Resources)
	Categories []string   `json:"categories,omitempty"`
	Resource   *Resource  `json:"resource,omitempty"`
}

// Empty reports whether there is nothing to render.
func (s Summary) Empty() bool {
	return s.Kind == KindNone
}

// Summarize classifies result. Invalid or absent JSON yields KindNone.
func Summarize(toolName string, result json.RawMessage) Summary {
	none := Summary{Kind: KindNone, ToolName: toolName}
	if len(result) == 0 || !gjson.ValidBytes(result) {
		return none
	}

	parsed := gjson.ParseBytes(result)
	if !parsed.IsObject() {
		return none
	}

	if list := parsed.Get("resources"); list.IsArray() {
		s := Summary{Kind: KindResourceList, ToolName: toolName}
		list.ForEach(func(_, item gjson.Result) bool {
			if !item.IsObject() {
				return true
			}
			r := parseResource(item)
			r.Rank = len(s.Resources) + 1
			s.Resources = append(s.Resources, r)
			return true
		})
		s.Total = len(s.Resources)
		if total := parsed.Get("total"); total.Type == gjson.Number && int(total.Int()) > s.Total {
			s.Total = int(total.Int())
		}
		return s
	}

	if tags := parsed.Get("categories"); tags.IsArray() {
		s := Summary{Kind: KindCategoryTags, ToolName: toolName}
		tags.ForEach(func(_, item gjson.Result) bool {
			name := categoryName(item)
			if name != "" {
				s.Categories = append(s.Categories, name)
			}
			return true
		})
		return s
	}

	if single := parsed.Get("resource"); single.IsObject() {
		r := parseResource(single)
		return Summary{Kind: KindResourceDetail, ToolName: toolName, Resource: &r}
	}

	return none
}

// parseResource reads the known listing fields, accepting the common
// spelling variants used by the backend.
func parseResource(item gjson.Result) Resource {
	return Resource{
		ID:          firstString(item, "id", "_id", "slug"),
		Title:       firstString(item, "title", "name", "titleAr", "nameAr"),
		Description: firstString(item, "description", "summary", "descriptionAr"),
		Category:    categoryName(item.Get("category")),
		Price:       formatPrice(item),
		Location:    firstString(item, "location", "city", "region"),
		Provider:    firstString(item, "provider.name", "provider", "owner.name", "lawyer.name"),
		Rating:      item.Get("rating").Float(),
		URL:         firstString(item, "url", "link"),
	}
}

// categoryName accepts either a plain string or an object with a name.
func categoryName(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return strings.TrimSpace(v.String())
	case v.IsObject():
		return firstString(v, "name", "title", "nameAr", "slug")
	default:
		return ""
	}
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := item.Get(p)
		if v.Type == gjson.String || v.Type == gjson.Number {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// formatPrice renders "price" with its currency, defaulting to SAR.
func formatPrice(item gjson.Result) string {
	price := item.Get("price")
	var amount string
	switch price.Type {
	case gjson.Number:
		amount = strconv.FormatFloat(price.Float(), 'f', -1, 64)
	case gjson.String:
		amount = strings.TrimSpace(price.String())
	default:
		return ""
	}
	if amount == "" {
		return ""
	}
	currency := firstString(item, "currency")
	if currency == "" {
		currency = "SAR"
	}
	return amount + " " + currency
}
