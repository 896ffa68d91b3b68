// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package actions derives quick-action buttons from a finished assistant reply.
//
// The derivation is a best-effort keyword heuristic. It inspects the final
// text for topic words in English and Arabic and offers the matching actions.
// Exact trigger wording is not a contract and may change between releases.
package actions

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/souq-assist/internal/model"
)

// MaxActions caps the number of suggested buttons per message.
const MaxActions = 3

// rule maps topic keywords to an action. Keywords are matched as substrings
// of the folded text, so stems like "categor" cover plural forms.
type rule struct {
	keywords []string
	action   func(isLoggedIn bool) model.Action
}

// rules are evaluated in order; the order is the order of the buttons.
var rules = []rule{
	{
		keywords: []string{"resource", "listing", "provider", "service", "مورد", "موارد", "خدمة", "خدمات", "مزود"},
		action: func(bool) model.Action {
			return model.Action{
				Kind:  model.ActionSearchResources,
				Label: "Search more resources",
				Query: "Show me more resources like these",
			}
		},
	},
	{
		keywords: []string{"categor", "فئة", "فئات", "تصنيف", "أقسام"},
		action: func(bool) model.Action {
			return model.Action{
				Kind:  model.ActionBrowseCategories,
				Label: "Browse categories",
				Query: "What categories are available?",
			}
		},
	},
	{
		keywords: []string{"consult", "lawyer", "legal", "attorney", "contract", "استشارة", "محامي", "قانون", "عقد"},
		action: func(isLoggedIn bool) model.Action {
			if !isLoggedIn {
				return model.Action{Kind: model.ActionSignIn, Label: "Sign in to book a consultation"}
			}
			return model.Action{
				Kind:  model.ActionBookConsultation,
				Label: "Book a consultation",
				Query: "I would like to book a legal consultation",
			}
		},
	},
	{
		keywords: []string{"price", "pricing", "cost", "fee", "سعر", "أسعار", "تكلفة", "رسوم", "ريال"},
		action: func(bool) model.Action {
			return model.Action{
				Kind:  model.ActionViewPricing,
				Label: "View pricing",
				Query: "How much does it cost?",
			}
		},
	},
	{
		keywords: []string{"support", "problem", "issue", "complaint", "دعم", "مشكلة", "شكوى"},
		action: func(bool) model.Action {
			return SupportAction()
		},
	},
}

// SuggestActions returns the quick actions suggested by finalText. The
// result depends only on its arguments.
func SuggestActions(finalText string, isLoggedIn bool) []model.Action {
	text := fold(finalText)
	if text == "" {
		return nil
	}

	var out []model.Action
	seen := make(map[model.ActionKind]bool)
	for _, r := range rules {
		if len(out) == MaxActions {
			break
		}
		if !containsAny(text, r.keywords) {
			continue
		}
		a := r.action(isLoggedIn)
		if seen[a.Kind] {
			continue
		}
		seen[a.Kind] = true
		out = append(out, a)
	}
	return out
}

// SupportAction is the contact-support button attached to failure messages.
func SupportAction() model.Action {
	return model.Action{
		Kind:  model.ActionContactSupport,
		Label: "Contact support",
		Query: "I need help from the support team",
	}
}

// Find returns the action with the given label or kind from a message's
// buttons, for UIs that accept the button text as input.
func Find(buttons []model.Action, choice string) (model.Action, bool) {
	want := fold(choice)
	for _, b := range buttons {
		if fold(b.Label) == want || string(b.Kind) == want {
			return b, true
		}
	}
	return model.Action{}, false
}

// fold normalizes text for keyword matching.
func fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
