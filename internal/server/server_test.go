// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/session"
	"github.com/jeranaias/souq-assist/internal/summary"
	"github.com/jeranaias/souq-assist/internal/wire"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, opts Options, scripter Scripter) (*Server, *httptest.Server) {
	t.Helper()
	opts.Logger = quietLogger()
	srv := New(opts, scripter)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newClient(ts *httptest.Server, sess session.Context) *chatclient.Client {
	return chatclient.New(sess, model.NewTranscript(),
		&chatclient.ClientConfig{BaseURL: ts.URL},
		chatclient.WithLogger(quietLogger()))
}

func postChat(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// =============================================================================
// SCRIPT TESTS
// =============================================================================

func TestTextChunks(t *testing.T) {
	events := TextChunks("Hello, brave new world")
	require.Len(t, events, 4)

	var sb strings.Builder
	for _, ev := range events {
		sb.WriteString(ev.(wire.TextDelta).Text)
	}
	assert.Equal(t, "Hello, brave new world", sb.String())
	assert.Empty(t, TextChunks(""))
}

func TestDefaultScripter(t *testing.T) {
	tests := []struct {
		message  string
		status   int
		toolName string
	}{
		{"please #fail", http.StatusInternalServerError, ""},
		{"show me the categories", 0, "listCategories"},
		{"find a lawyer in Riyadh", 0, "searchResources"},
		{"ابحث عن محامي", 0, "searchResources"},
		{"tell me about trademark registration", 0, "getResource"},
		{"hello", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.message, func(t *testing.T) {
			reply := DefaultScripter(ChatRequest{Message: tc.message})
			assert.Equal(t, tc.status, reply.Status)
			if tc.toolName == "" {
				for _, ev := range reply.Events {
					assert.IsType(t, wire.TextDelta{}, ev)
				}
				return
			}
			require.GreaterOrEqual(t, len(reply.Events), 3)
			call, ok := reply.Events[0].(wire.ToolCall)
			require.True(t, ok)
			assert.Equal(t, tc.toolName, call.ToolName)
			result, ok := reply.Events[1].(wire.ToolResult)
			require.True(t, ok)
			assert.Equal(t, call.ToolCallID, result.ToolCallID)
		})
	}
}

func TestDefaultScripter_LegalDependsOnLogin(t *testing.T) {
	join := func(r Reply) string {
		var sb strings.Builder
		for _, ev := range r.Events {
			sb.WriteString(ev.(wire.TextDelta).Text)
		}
		return sb.String()
	}

	anon := join(DefaultScripter(ChatRequest{Message: "I have a contract question"}))
	assert.Contains(t, anon, "Sign in")

	id := "u-1"
	member := join(DefaultScripter(ChatRequest{Message: "I have a contract question", UserID: &id}))
	assert.NotContains(t, member, "Sign in")
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestHandleChat_StreamsFramedLines(t *testing.T) {
	_, ts := newTestServer(t, Options{}, func(ChatRequest) Reply {
		return Reply{Events: TextChunks("Hi there")}
	})

	resp := postChat(t, ts.URL, `{"message":"hi","messages":[],"userId":null}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t,
		"0:{\"type\":\"text-delta\",\"textDelta\":\"Hi\"}\n0:{\"type\":\"text-delta\",\"textDelta\":\" there\"}\n",
		string(body))
}

func TestHandleChat_BadRequests(t *testing.T) {
	srv, ts := newTestServer(t, Options{}, nil)

	for _, body := range []string{``, `not json`, `{"message":"   "}`} {
		resp := postChat(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
	assert.Equal(t, int64(3), srv.Stats().Rejected.Load())
	assert.Equal(t, int64(0), srv.Stats().Requests.Load())
}

func TestHandleHealth(t *testing.T) {
	_, ts := newTestServer(t, Options{}, nil)
	postChat(t, ts.URL, `{"message":"hello"}`)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int64(1), health.Requests)
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, Options{RatePerSecond: 0.001, Burst: 2}, nil)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := postChat(t, ts.URL, `{"message":"hello"}`)
		io.Copy(io.Discard, resp.Body)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// Health checks are not limited.
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("10.0.0.1"))
	}
}

func TestRateLimit_LimitHeader(t *testing.T) {
	_, limited := newTestServer(t, Options{RatePerSecond: 2, Burst: 2}, nil)
	resp := postChat(t, limited.URL, `{"message":"hello"}`)
	io.Copy(io.Discard, resp.Body)
	assert.Equal(t, "2/s", resp.Header.Get("X-RateLimit-Limit"))

	_, open := newTestServer(t, Options{}, nil)
	resp = postChat(t, open.URL, `{"message":"hello"}`)
	io.Copy(io.Discard, resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Values("X-RateLimit-Limit"), "no limit header when limiting is off")
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t, Options{AllowedOrigins: []string{"https://souq.example"}}, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://souq.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://souq.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	_, ts := newTestServer(t, Options{}, func(ChatRequest) Reply {
		panic("scripter exploded")
	})

	resp := postChat(t, ts.URL, `{"message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

// =============================================================================
// END-TO-END WITH THE CHAT CLIENT
// =============================================================================

func TestEndToEnd_ResourceSearch(t *testing.T) {
	_, ts := newTestServer(t, Options{}, nil)
	client := newClient(ts, session.Anonymous())

	msg, err := client.Send(context.Background(), "Find a lawyer in Riyadh")
	require.NoError(t, err)

	assert.False(t, msg.Failed)
	assert.Contains(t, msg.Content, "I found several resources")
	require.Len(t, msg.ToolInvocations, 1)

	inv := msg.ToolInvocations[0]
	require.True(t, inv.HasResult())
	s := summary.Summarize(inv.ToolName, inv.Result)
	assert.Equal(t, summary.KindResourceList, s.Kind)
	assert.Len(t, s.Resources, len(fixtureResources))
	assert.Equal(t, 12, s.Total)
	assert.NotEmpty(t, msg.Buttons)
}

func TestEndToEnd_Categories(t *testing.T) {
	_, ts := newTestServer(t, Options{}, nil)
	client := newClient(ts, session.Context{UserID: "u-9"})

	msg, err := client.Send(context.Background(), "What categories do you have?")
	require.NoError(t, err)
	require.Len(t, msg.ToolInvocations, 1)

	s := summary.Summarize(msg.ToolInvocations[0].ToolName, msg.ToolInvocations[0].Result)
	assert.Equal(t, summary.KindCategoryTags, s.Kind)
	assert.Equal(t, []string{"Legal", "Real estate", "Intellectual property", "Business services"}, s.Categories)
}

func TestEndToEnd_FailureAndGarbled(t *testing.T) {
	_, ts := newTestServer(t, Options{}, nil)
	client := newClient(ts, session.Anonymous())

	msg, err := client.Send(context.Background(), "#fail")
	require.NoError(t, err)
	assert.True(t, msg.Failed)
	assert.Equal(t, chatclient.FailureNotice, msg.Content)

	msg, err = client.Send(context.Background(), "#garbled")
	require.NoError(t, err)
	assert.False(t, msg.Failed)
	assert.Equal(t, "Some lines were damaged, but this one arrived.", msg.Content)

	msg, err = client.Send(context.Background(), "#empty")
	require.NoError(t, err)
	assert.Equal(t, chatclient.EmptyResponseNotice, msg.Content)

	assert.Equal(t, 6, client.Transcript().Len())
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(Options{Logger: quietLogger()}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
