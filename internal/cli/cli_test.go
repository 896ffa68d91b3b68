// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/config"
	"github.com/jeranaias/souq-assist/internal/server"
	"github.com/jeranaias/souq-assist/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points HOME at a temp dir and clears SOUQ_ overrides, so config,
// session and history never touch the real user's files.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{
		"SOUQ_BASE_URL", "SOUQ_CHAT_PATH", "SOUQ_SESSION_FILE", "SOUQ_DB_PATH",
		"SOUQ_SERVER_ADDR", "SOUQ_LOG_LEVEL", "SOUQ_LOG_FORMAT", "SOUQ_LOG_FILE", "SOUQ_NO_AUTOSAVE",
	} {
		t.Setenv(key, "")
	}
	return home
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	srv := server.New(server.Options{Logger: l}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// runCLI executes the command tree with args and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// decodeData decodes the data field of a JSONResponse into v.
func decodeData(t *testing.T, out string, v interface{}) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_JSON(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	out, _, err := runCLI(t, "", "--base-url", ts.URL, "--json", "ask", "Find a lawyer in Riyadh")
	require.NoError(t, err)

	var result struct {
		ConversationID string `json:"conversationId"`
		Reply          struct {
			Content string `json:"content"`
			Failed  bool   `json:"failed"`
			Buttons []struct {
				Label string `json:"label"`
			} `json:"buttons"`
		} `json:"reply"`
		Summaries []struct {
			Kind      string `json:"kind"`
			ToolName  string `json:"toolName"`
			Total     int    `json:"total"`
			Resources []struct {
				Title string `json:"title"`
			} `json:"resources"`
		} `json:"summaries"`
	}
	decodeData(t, out, &result)

	assert.NotEmpty(t, result.ConversationID)
	assert.False(t, result.Reply.Failed)
	assert.Contains(t, result.Reply.Content, "I found several resources")
	assert.NotEmpty(t, result.Reply.Buttons)
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, "resource-list", result.Summaries[0].Kind)
	assert.Equal(t, "searchResources", result.Summaries[0].ToolName)
	assert.Equal(t, 12, result.Summaries[0].Total)
	assert.Equal(t, "Commercial contract review", result.Summaries[0].Resources[0].Title)
}

func TestAsk_PlainOutputAndHistory(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	out, _, err := runCLI(t, "", "--base-url", ts.URL, "ask", "show", "me", "the", "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "We offer services in these categories")
	assert.Contains(t, out, "Intellectual property")
	assert.Contains(t, out, "Browse categories")

	out, _, err = runCLI(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "show me the categories")

	out, _, err = runCLI(t, "", "history", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "We offer services")

	out, _, err = runCLI(t, "", "history", "export", "1", "--format", "json")
	require.NoError(t, err)
	var conv struct {
		ID       string            `json:"id"`
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &conv))
	assert.Len(t, conv.Messages, 2)
}

func TestAsk_NoSave(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	_, _, err := runCLI(t, "", "--base-url", ts.URL, "ask", "--no-save", "hello")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "--json", "history", "list")
	require.NoError(t, err)
	var metas []map[string]interface{}
	decodeData(t, out, &metas)
	assert.Empty(t, metas)
}

func TestAsk_FailureSetsExitCode(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	out, _, err := runCLI(t, "", "--base-url", ts.URL, "ask", "#fail")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errReplyFailed))
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
	assert.Contains(t, out, chatclient.FailureNotice)
	assert.Contains(t, out, "Contact support")
}

func TestAsk_EmptyQuestion(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, "   \n", "ask")
	require.Error(t, err)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestAsk_UserOverride(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	out, _, err := runCLI(t, "", "--base-url", ts.URL, "ask", "I have a contract question")
	require.NoError(t, err)
	assert.Contains(t, out, "Sign in to book a consultation")

	out, _, err = runCLI(t, "", "--base-url", ts.URL, "--as-user", "u-1", "ask", "I have a contract question")
	require.NoError(t, err)
	assert.NotContains(t, out, "Sign in")
	assert.Contains(t, out, "Book a consultation")
}

func TestAsk_UnreachableEndpoint(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)
	url := ts.URL
	ts.Close()

	out, _, err := runCLI(t, "", "--base-url", url, "--json", "ask", "hello")
	assert.ErrorIs(t, err, errReplyFailed)

	var result AskResult
	decodeData(t, out, &result)
	assert.True(t, result.Reply.Failed)
	assert.Equal(t, chatclient.FailureNotice, result.Reply.Content)
}

// =============================================================================
// REPL
// =============================================================================

// runPipedREPL runs the REPL over scripted input lines and returns its output.
func runPipedREPL(t *testing.T, baseURL, resume string, lines ...string) (*app, string) {
	t.Helper()
	a := newApp()
	a.baseURL = baseURL
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	require.NoError(t, a.setup(cmd, nil))

	input := newPipePrompter(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, a.runREPLFrom(cmd, input, resume))
	return a, out.String()
}

func TestREPL_PipedSession(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	a, text := runPipedREPL(t, ts.URL, "",
		"Find a lawyer in Riyadh",
		"/tools",
		"/1",
		"/9",
		"/bogus",
		"/quit",
		"never sent",
	)

	assert.Contains(t, text, "I found several resources")
	assert.Contains(t, text, "Commercial contract review")
	assert.Contains(t, text, "Tool results hidden.")
	assert.Contains(t, text, "> Show me more resources like these")
	assert.Contains(t, text, "choose an action between 1 and")
	assert.Contains(t, text, "unknown command /bogus")
	assert.NotContains(t, text, "never sent")

	store, err := a.openStore()
	require.NoError(t, err)
	defer store.Close()
	conv, err := store.LoadByIndex(1)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 4)
	assert.Equal(t, "Find a lawyer in Riyadh", conv.Messages[0].Content)
}

func TestREPL_NewConversationAndResume(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	_, text := runPipedREPL(t, ts.URL, "", "hello", "/new", "show me the categories")
	assert.Contains(t, text, "Started a new conversation.")

	listOut, _, err := runCLI(t, "", "--json", "history", "list")
	require.NoError(t, err)
	var metas []struct {
		Title        string `json:"title"`
		MessageCount int    `json:"message_count"`
	}
	decodeData(t, listOut, &metas)
	require.Len(t, metas, 2)
	assert.Equal(t, "show me the categories", metas[0].Title)
	assert.Equal(t, 2, metas[1].MessageCount)

	_, text = runPipedREPL(t, ts.URL, "2", "/quit")
	assert.Contains(t, text, "Resumed conversation with 2 messages.")
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_NotFoundAndClear(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	_, _, err := runCLI(t, "", "history", "show", "99")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrConversationNotFound))
	assert.Equal(t, ExitNotFound, GetExitCode(err))

	_, _, err = runCLI(t, "", "--base-url", ts.URL, "ask", "hello")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared.")

	out, _, err = runCLI(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations found.")
}

func TestHistory_ExportToFileAndDelete(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	_, _, err := runCLI(t, "", "--base-url", ts.URL, "ask", "tell me about trademark registration")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.md")
	_, _, err = runCLI(t, "", "history", "export", "1", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# tell me about trademark registration"))

	_, _, err = runCLI(t, "", "history", "export", "1", "--format", "pdf")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	out, _, err := runCLI(t, "", "history", "rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conv")
}

// =============================================================================
// SESSION
// =============================================================================

func TestSession_LoginShowLogout(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, "", "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	_, _, err = runCLI(t, "", "session", "login")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	out, _, err = runCLI(t, "secret-token-9876\n", "session", "login", "--user", "4821", "--token-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as user 4821")
	assert.NotContains(t, out, "secret-token")

	out, _, err = runCLI(t, "", "--json", "session", "show")
	require.NoError(t, err)
	var info SessionInfo
	decodeData(t, out, &info)
	assert.True(t, info.LoggedIn)
	assert.Equal(t, "4821", info.UserID)
	assert.Equal(t, "****9876", info.Token)

	_, _, err = runCLI(t, "", "session", "logout")
	require.NoError(t, err)
	out, _, err = runCLI(t, "", "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestSession_SavedIdentityIsSent(t *testing.T) {
	isolate(t)
	ts := fixtureServer(t)

	_, _, err := runCLI(t, "", "session", "login", "--user", "4821", "--token", "abcdef123456")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "--base-url", ts.URL, "ask", "I have a contract question")
	require.NoError(t, err)
	assert.NotContains(t, out, "Sign in")
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_InitGetSet(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	_, _, err := runCLI(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	require.FileExists(t, path)

	_, _, err = runCLI(t, "", "--config", path, "config", "init")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, _, err = runCLI(t, "", "--config", path, "config", "set", "ui.theme", "light")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "--config", path, "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	loaded, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "light", loaded.UI.Theme)

	_, _, err = runCLI(t, "", "--config", path, "config", "set", "nope.key", "x")
	assert.True(t, errors.As(err, &validationErr))

	_, _, err = runCLI(t, "", "--config", path, "config", "set", "api.base_url", "not a url")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	out, _, err = runCLI(t, "", "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestConfig_ShowJSONAndBaseURLOverride(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, "", "--json", "--base-url", "https://souq.example", "config", "show")
	require.NoError(t, err)
	var cfg config.Config
	decodeData(t, out, &cfg)
	assert.Equal(t, "https://souq.example", cfg.API.BaseURL)
	assert.Equal(t, "/api/chat", cfg.API.ChatPath)

	_, _, err = runCLI(t, "", "--base-url", "ftp://nope", "config", "show")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	_, _, err = runCLI(t, "", "--log-level", "chatty", "config", "show")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_RequiresTerminal(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, "", "chat")
	var ttyErr *TTYRequiredError
	require.True(t, errors.As(err, &ttyErr))
	assert.Contains(t, err.Error(), "souq-assist ask")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestResumeTranscript(t *testing.T) {
	tr, err := resumeTranscript(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())

	_, err = resumeTranscript(nil, "1")
	assert.ErrorIs(t, err, storage.ErrConversationNotFound)
}

// =============================================================================
// ERRORS AND OUTPUT
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("user", "", "required"), ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "chat"}, ExitUsageError},
		{"config", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"not found", NewCommandError("history", "show", storage.ErrConversationNotFound), ExitNotFound},
		{"reply failed", errReplyFailed, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetExitCode(tc.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewValidationError("user", "", "required"), true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid user: required", *resp.Error)
	assert.Equal(t, "validation_error", resp.ErrorType)

	buf.Reset()
	DisplayError(&buf, errors.New("boom"), false)
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	DisplayError(&buf, nil, false)
	assert.Empty(t, buf.String())
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short line", WrapText("short line", 40))
	assert.Equal(t, "one two\nthree", WrapText("one two three", 8))
	assert.Equal(t, "a\n\nb", WrapText("a\n\nb", 10))

	wrapped := WrapText("مرحبا بكم في سوق الخدمات القانونية", 12)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 12)
	}
}

func TestColorsEnabled(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "1")
	assert.False(t, ColorsEnabled())

	t.Setenv("NO_COLOR", "")
	assert.True(t, ColorsEnabled())
}
