// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// Context is the identity of the person chatting.
type Context struct {
	UserID    string
	AuthToken string
}

// Anonymous returns a Context with no identity.
func Anonymous() Context {
	return Context{}
}

// IsLoggedIn reports whether a user identity is present.
func (c Context) IsLoggedIn() bool {
	return c.UserID != ""
}

// UserIDOrNil returns a pointer to the user ID, or nil when anonymous, so
// that it encodes as JSON null.
func (c Context) UserIDOrNil() *string {
	if c.UserID == "" {
		return nil
	}
	id := c.UserID
	return &id
}

// HasToken reports whether a bearer token is available.
func (c Context) HasToken() bool {
	return c.AuthToken != ""
}

// String describes the context without revealing the token.
func (c Context) String() string {
	if !c.IsLoggedIn() {
		return "anonymous"
	}
	if c.HasToken() {
		return "user " + c.UserID + " (token " + MaskToken(c.AuthToken) + ")"
	}
	return "user " + c.UserID
}

// MaskToken shows only the last four characters of a token.
func MaskToken(token string) string {
	runes := []rune(token)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
