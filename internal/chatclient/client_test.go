// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/session"
	"github.com/jeranaias/souq-assist/internal/wire"
)

// =============================================================================
// HELPERS
// =============================================================================

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// streamLines writes each line followed by a newline, flushing after each so
// the client sees them as separate chunks.
func streamLines(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		fmt.Fprintln(w, line)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func textLine(s string) string {
	b, _ := json.Marshal(s)
	return `0:{"type":"text-delta","textDelta":` + string(b) + `}`
}

func newTestClient(t *testing.T, sess session.Context, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	client := New(sess, model.NewTranscript(), &ClientConfig{BaseURL: server.URL}, opts...)
	return client, server
}

// =============================================================================
// INPUT GUARD
// =============================================================================

func TestSend_EmptyInputMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		streamLines(w, textLine("unused"))
	})

	for _, input := range []string{"", "   ", "\n\t "} {
		msg, err := client.Send(context.Background(), input)
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}

	assert.Equal(t, int32(0), hits.Load())
	assert.Equal(t, 0, client.Transcript().Len())
	assert.False(t, client.Busy())
}

// =============================================================================
// STREAMING
// =============================================================================

func TestSend_AppendsOneUserAndOneAssistant(t *testing.T) {
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("Marhaba!"))
	})

	msg, err := client.Send(context.Background(), "  Hello  ")
	require.NoError(t, err)
	require.NotNil(t, msg)

	msgs := client.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Marhaba!", msgs[1].Content)
	assert.False(t, msgs[1].IsStreaming)
	assert.Equal(t, msg.ID, msgs[1].ID)
	assert.NoError(t, client.LastError())
	assert.False(t, client.Transcript().InFlight())
}

func TestSend_AccumulatesDeltas(t *testing.T) {
	var observed []string
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("Hel"), textLine("lo, "), textLine("world"))
	}, WithEventHook(func(ev wire.Event) {
		if td, ok := ev.(wire.TextDelta); ok {
			observed = append(observed, td.Text)
		}
	}))

	msg, err := client.Send(context.Background(), "Greet me")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", msg.Content)
	assert.Equal(t, []string{"Hel", "lo, ", "world"}, observed)
}

func TestSend_ToolCorrelation(t *testing.T) {
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w,
			`0:{"type":"tool-call","toolCallId":"t1","toolName":"searchResources","args":{"query":"lawyer"}}`,
			`0:{"type":"tool-result","toolCallId":"t1","result":{"resources":[{"id":"r1"}]}}`,
			`0:{"type":"tool-result","toolCallId":"t2","result":{"orphan":true}}`,
			`0:{"type":"tool-result","toolCallId":"t1","result":{"late":true}}`,
			textLine("Here is what I found."),
		)
	})

	msg, err := client.Send(context.Background(), "Find a lawyer")
	require.NoError(t, err)

	require.Len(t, msg.ToolInvocations, 1)
	inv := msg.ToolInvocations[0]
	assert.Equal(t, "t1", inv.ToolCallID)
	assert.Equal(t, "searchResources", inv.ToolName)
	assert.JSONEq(t, `{"query":"lawyer"}`, string(inv.Args))
	require.True(t, inv.HasResult())
	assert.JSONEq(t, `{"resources":[{"id":"r1"}]}`, string(inv.Result))
	assert.Nil(t, msg.FindToolInvocation("t2"))
}

func TestSend_SkipsMalformedLines(t *testing.T) {
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w,
			textLine("Hel"),
			`0:{"type":"text-delta",`,
			`garbage without separator`,
			`0:{"type":"reasoning","text":"ignored"}`,
			``,
			textLine("lo"),
		)
	})

	msg, err := client.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello", msg.Content)
	assert.False(t, msg.Failed)
}

func TestSend_SuggestsActionsFromFinalText(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("A lawyer can review your contract."))
	}

	anon, _ := newTestClient(t, session.Anonymous(), handler)
	msg, err := anon.Send(context.Background(), "contract help")
	require.NoError(t, err)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, model.ActionSignIn, msg.Buttons[0].Kind)

	member, _ := newTestClient(t, session.Context{UserID: "u-1"}, handler)
	msg, err = member.Send(context.Background(), "contract help")
	require.NoError(t, err)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, model.ActionBookConsultation, msg.Buttons[0].Kind)
}

// =============================================================================
// FALLBACKS
// =============================================================================

func TestSend_NonOKStatus(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusUnauthorized, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				fmt.Fprintln(w, textLine("should not be read"))
			})

			msg, err := client.Send(context.Background(), "hello")
			require.NoError(t, err)

			assert.Equal(t, FailureNotice, msg.Content)
			assert.True(t, msg.Failed)
			assert.Empty(t, msg.ToolInvocations)
			require.Len(t, msg.Buttons, 1)
			assert.Equal(t, model.ActionContactSupport, msg.Buttons[0].Kind)

			var clientErr *ClientError
			require.True(t, errors.As(client.LastError(), &clientErr))
			assert.Equal(t, ErrTypeStatus, clientErr.Type)
			assert.Equal(t, status, clientErr.StatusCode)
			assert.True(t, IsTransport(client.LastError()))
			assert.Equal(t, 2, client.Transcript().Len())
		})
	}
}

func TestSend_WhitespaceReplyIsKept(t *testing.T) {
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("  "), textLine("\n"))
	})

	msg, err := client.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "  \n", msg.Content)
	assert.Empty(t, msg.Buttons)
}

func TestSend_NullToolResultStaysPending(t *testing.T) {
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w,
			`0:{"type":"tool-call","toolCallId":"t1","toolName":"getResource","args":{}}`,
			`0:{"type":"tool-result","toolCallId":"t1","result":null}`,
			`0:{"type":"tool-result","toolCallId":"t1","result":{"a":1}}`,
			textLine("done"),
		)
	})

	msg, err := client.Send(context.Background(), "show it")
	require.NoError(t, err)
	require.Len(t, msg.ToolInvocations, 1)
	assert.JSONEq(t, `{"a":1}`, string(msg.ToolInvocations[0].Result))
}

func TestSend_EmptyStream(t *testing.T) {
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w)
	})

	msg, err := client.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, EmptyResponseNotice, msg.Content)
	assert.False(t, msg.Failed)
	assert.Equal(t, 2, client.Transcript().Len())
}

func TestSend_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(session.Anonymous(), nil, &ClientConfig{BaseURL: url}, WithLogger(quietLogger()))
	msg, err := client.Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, FailureNotice, msg.Content)
	assert.True(t, msg.Failed)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, model.ActionContactSupport, msg.Buttons[0].Kind)

	var clientErr *ClientError
	require.True(t, errors.As(client.LastError(), &clientErr))
	assert.Equal(t, ErrTypeConnection, clientErr.Type)
}

func TestSend_PartialTextSurvivesStreamError(t *testing.T) {
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("Partial answer"))
		panic(http.ErrAbortHandler)
	})

	msg, err := client.Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "Partial answer", msg.Content)
	assert.True(t, msg.Failed)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, model.ActionContactSupport, msg.Buttons[0].Kind)
	assert.True(t, IsTransport(client.LastError()))
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestSend_RequestBodyAndHistory(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]any
	)
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		streamLines(w, textLine("reply"))
	})

	_, err := client.Send(context.Background(), "first")
	require.NoError(t, err)
	_, err = client.Send(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, bodies, 2)

	assert.Equal(t, "first", bodies[0]["message"])
	assert.Equal(t, []any{}, bodies[0]["messages"])
	assert.Contains(t, bodies[0], "userId")
	assert.Nil(t, bodies[0]["userId"])

	assert.Equal(t, "second", bodies[1]["message"])
	assert.Equal(t, []any{
		map[string]any{"role": "user", "content": "first"},
		map[string]any{"role": "assistant", "content": "reply"},
	}, bodies[1]["messages"])
}

func TestSend_LoggedInHeadersAndUserID(t *testing.T) {
	var (
		gotAuth string
		gotBody ChatRequest
	)
	sess := session.Context{UserID: "u-42", AuthToken: "secret-token"}
	client, _ := newTestClient(t, sess, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		streamLines(w, textLine("ok"))
	})

	_, err := client.Send(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	require.NotNil(t, gotBody.UserID)
	assert.Equal(t, "u-42", *gotBody.UserID)
	assert.Equal(t, "u-42", client.Transcript().Snapshot().UserID)
}

// =============================================================================
// CONCURRENCY AND CANCELLATION
// =============================================================================

func TestSend_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		streamLines(w, textLine("done"))
	})

	done := make(chan *model.Message, 1)
	go func() {
		msg, _ := client.Send(context.Background(), "first")
		done <- msg
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never arrived")
	}
	assert.True(t, client.Busy())

	msg, err := client.Send(context.Background(), "second")
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	select {
	case msg := <-done:
		require.NotNil(t, msg)
		assert.Equal(t, "done", msg.Content)
	case <-time.After(5 * time.Second):
		t.Fatal("first send never finished")
	}

	assert.False(t, client.Busy())
	assert.Equal(t, 2, client.Transcript().Len())
}

func TestSend_CancelKeepsPartialText(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("Hel"))
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}, WithEventHook(func(wire.Event) { cancel() }))

	msg, err := client.Send(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, "Hel", msg.Content)
	assert.False(t, msg.Failed)
	assert.Empty(t, msg.Buttons)
	assert.True(t, IsCancelled(client.LastError()))
	assert.False(t, client.Busy())
}

func TestSend_CancelBeforeAnyText(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, _ := newTestClient(t, session.Anonymous(), func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("never"))
	})

	msg, err := client.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, CancelledNotice, msg.Content)
	assert.True(t, IsCancelled(client.LastError()))
	assert.Equal(t, 2, client.Transcript().Len())
}

func TestReset_StartsNewConversation(t *testing.T) {
	client, _ := newTestClient(t, session.Context{UserID: "u-3"}, func(w http.ResponseWriter, r *http.Request) {
		streamLines(w, textLine("ok"))
	})

	_, err := client.Send(context.Background(), "first")
	require.NoError(t, err)
	old := client.Transcript()
	require.Equal(t, 2, old.Len())

	require.NoError(t, client.Reset(nil))
	fresh := client.Transcript()
	assert.NotSame(t, old, fresh)
	assert.Equal(t, 0, fresh.Len())
	assert.Equal(t, "u-3", fresh.Snapshot().UserID)

	_, err = client.Send(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Len())
	assert.Equal(t, 2, old.Len(), "the previous transcript is left untouched")

	client.busy.Store(true)
	assert.ErrorIs(t, client.Reset(nil), ErrBusy)
	client.busy.Store(false)
}

// =============================================================================
// ERRORS AND CONFIG
// =============================================================================

func TestClientError(t *testing.T) {
	err := &ClientError{Type: ErrTypeStatus, Message: "chat request failed", StatusCode: 502}
	assert.Equal(t, "chat request failed (HTTP 502)", err.Error())
	assert.True(t, IsTransport(err))
	assert.False(t, IsCancelled(err))

	cause := io.ErrUnexpectedEOF
	wrapped := &ClientError{Type: ErrTypeStream, Message: "stream interrupted", Cause: cause}
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
	assert.Contains(t, wrapped.Error(), "unexpected EOF")

	assert.ErrorIs(t, fmt.Errorf("send: %w", ErrBusy), ErrBusy)
	assert.NotErrorIs(t, ErrBusy, ErrEmptyMessage)
	assert.Equal(t, "busy", ErrTypeBusy.String())
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &ClientConfig{BaseURL: "http://souq.example/"}
	New(session.Anonymous(), nil, cfg)

	assert.Equal(t, "/api/chat", cfg.ChatPath)
	assert.Equal(t, 30*time.Second, cfg.HeaderTimeout)
	assert.Equal(t, "http://souq.example/api/chat", cfg.Endpoint())
	assert.Equal(t, "http://127.0.0.1:3000/api/chat", DefaultConfig().Endpoint())
}
