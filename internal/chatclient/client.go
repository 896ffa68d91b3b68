// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/souq-assist/internal/actions"
	"github.com/jeranaias/souq-assist/internal/logger"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/session"
	"github.com/jeranaias/souq-assist/internal/wire"
)

// =============================================================================
// FIXED NOTICES
// =============================================================================

const (
	// FailureNotice replaces the reply when the endpoint cannot be reached,
	// answers with a non-200 status, or the stream breaks before any text.
	FailureNotice = "I'm having trouble connecting right now. Please try again in a moment, or contact our support team if the problem continues."

	// EmptyResponseNotice replaces a reply that finished without any text.
	EmptyResponseNotice = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

	// CancelledNotice replaces a reply that was stopped before any text arrived.
	CancelledNotice = "Response stopped."
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL of the platform (default: http://127.0.0.1:3000)
	BaseURL string

	// ChatPath is the streaming chat endpoint (default: /api/chat)
	ChatPath string

	// HeaderTimeout bounds the wait for response headers (default: 30s).
	// The body itself may stream for as long as the server keeps it open.
	HeaderTimeout time.Duration

	// UserAgent sent with every request
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       "http://127.0.0.1:3000",
		ChatPath:      "/api/chat",
		HeaderTimeout: 30 * time.Second,
		UserAgent:     "souq-assist",
	}
}

// Endpoint returns the full chat URL.
func (c *ClientConfig) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.ChatPath, "/")
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger replaces the client's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithEventHook registers fn to observe every decoded event after it has
// been applied to the transcript. Hooks run on the sending goroutine.
func WithEventHook(fn func(wire.Event)) Option {
	return func(c *Client) {
		if fn != nil {
			c.hooks = append(c.hooks, fn)
		}
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// ChatRequest is the JSON body posted to the chat endpoint.
type ChatRequest struct {
	Message  string               `json:"message"`
	Messages []model.HistoryEntry `json:"messages"`
	UserID   *string              `json:"userId"`
}

// Client turns one user utterance into one finalized assistant message by
// streaming the chat endpoint's reply into a transcript.
//
// Only one Send runs at a time; a concurrent Send returns ErrBusy without
// touching the transcript.
//
// Example:
//
//	tr := model.NewTranscript()
//	client := chatclient.New(sess, tr, chatclient.DefaultConfig())
//	msg, err := client.Send(ctx, "Find me a commercial lawyer in Jeddah")
type Client struct {
	config     *ClientConfig
	session    session.Context
	transcript *model.Transcript
	httpClient *http.Client
	log        logrus.FieldLogger
	hooks      []func(wire.Event)

	busy    atomic.Bool
	mu      sync.Mutex
	lastErr error
}

// New creates a client bound to sess and transcript.
func New(sess session.Context, transcript *model.Transcript, config *ClientConfig, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.ChatPath == "" {
		config.ChatPath = defaults.ChatPath
	}
	if config.HeaderTimeout == 0 {
		config.HeaderTimeout = defaults.HeaderTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if transcript == nil {
		transcript = model.NewTranscript()
	}

	c := &Client{
		config:     config,
		session:    sess,
		transcript: transcript,
		// No overall timeout: the body streams until the server ends it.
		// Cancellation goes through the request context.
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: config.HeaderTimeout,
			},
		},
		log: logger.WithComponent("chatclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if sess.IsLoggedIn() {
		transcript.SetUserID(sess.UserID)
	}
	return c
}

// Transcript returns the transcript this client writes to.
func (c *Client) Transcript() *model.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Reset points the client at a fresh transcript, starting a new
// conversation. It returns ErrBusy while a send is in flight.
func (c *Client) Reset(transcript *model.Transcript) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	if transcript == nil {
		transcript = model.NewTranscript()
	}
	if c.session.IsLoggedIn() {
		transcript.SetUserID(c.session.UserID)
	}

	c.mu.Lock()
	c.transcript = transcript
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// Session returns the injected session context.
func (c *Client) Session() session.Context {
	return c.session
}

// Busy reports whether a Send is in flight. UIs disable input while true.
func (c *Client) Busy() bool {
	return c.busy.Load()
}

// LastError returns the transport failure recorded by the most recent Send,
// or nil when it succeeded.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// =============================================================================
// SEND
// =============================================================================

// Send appends userText to the transcript, streams the reply and returns the
// finalized assistant message.
//
// Empty input returns ErrEmptyMessage and a call made while another is in
// flight returns ErrBusy; neither touches the transcript or the network.
// Every other outcome, including transport failures and cancellation,
// appends exactly one user and one assistant message and returns a nil
// error. Failures are reported through the message (Failed, support button)
// and LastError.
func (c *Client) Send(ctx context.Context, userText string) (*model.Message, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	history := c.transcript.History()
	if _, err := c.transcript.AppendUser(text); err != nil {
		return nil, err
	}

	start := time.Now()
	failure := c.stream(ctx, ChatRequest{
		Message:  text,
		Messages: history,
		UserID:   c.session.UserIDOrNil(),
	})
	msg := c.finish(failure)

	c.mu.Lock()
	c.lastErr = nil
	if failure != nil {
		c.lastErr = failure
	}
	c.mu.Unlock()

	entry := c.log.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"tools":      len(msg.ToolInvocations),
		"chars":      len(msg.Content),
		"elapsed":    time.Since(start).Round(time.Millisecond),
	})
	switch {
	case failure == nil:
		entry.Debug("reply finalized")
	case failure.Type == ErrTypeCancelled:
		entry.Info("reply cancelled")
	default:
		entry.WithError(failure).WithField("type", failure.Type).Warn("reply failed")
	}
	return msg, nil
}

// stream performs the request and applies decoded events to the transcript.
func (c *Client) stream(ctx context.Context, body ChatRequest) *ClientError {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain, */*")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.session.HasToken() {
		req.Header.Set("Authorization", "Bearer "+c.session.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &ClientError{Type: ErrTypeCancelled, Message: "request cancelled", Cause: ctx.Err()}
		}
		return &ClientError{Type: ErrTypeConnection, Message: "chat endpoint unreachable", Cause: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:       ErrTypeStatus,
			Message:    "chat request failed",
			StatusCode: resp.StatusCode,
		}
	}

	dec := wire.NewDecoder(resp.Body)
	err = dec.Process(ctx, c.apply)

	stats := dec.Stats()
	c.log.WithFields(logrus.Fields{
		"lines":   stats.Lines,
		"events":  stats.Events,
		"skipped": stats.Skipped,
		"bytes":   stats.Bytes,
	}).Debug("stream closed")

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return &ClientError{Type: ErrTypeCancelled, Message: "stream cancelled", Cause: err}
		}
		return &ClientError{Type: ErrTypeStream, Message: "stream interrupted", Cause: err}
	}
	return nil
}

// apply routes one event to the matching transcript mutation.
func (c *Client) apply(ev wire.Event) {
	switch e := ev.(type) {
	case wire.TextDelta:
		c.transcript.AppendDelta(e.Text)
	case wire.ToolCall:
		if !c.transcript.RecordToolCall(e.ToolCallID, e.ToolName, e.Args) {
			c.log.WithField("tool_call_id", e.ToolCallID).Debug("duplicate tool call ignored")
		}
	case wire.ToolResult:
		if !c.transcript.RecordToolResult(e.ToolCallID, e.Result) {
			c.log.WithField("tool_call_id", e.ToolCallID).Debug("tool result without matching call ignored")
		}
	default:
		c.log.WithField("type", ev.Type()).Debug("unhandled event kind skipped")
	}

	for _, hook := range c.hooks {
		hook(ev)
	}
}

// finish closes the in-flight assistant message according to the outcome.
func (c *Client) finish(failure *ClientError) *model.Message {
	if failure == nil {
		final := c.transcript.InFlightContent()
		if final == "" {
			final = EmptyResponseNotice
		}
		return c.transcript.FinalizeAssistant(model.Finalization{
			Fallback: EmptyResponseNotice,
			Buttons:  actions.SuggestActions(final, c.session.IsLoggedIn()),
		})
	}

	if failure.Type == ErrTypeCancelled {
		return c.transcript.FinalizeAssistant(model.Finalization{Fallback: CancelledNotice})
	}

	return c.transcript.FinalizeAssistant(model.Finalization{
		Fallback: FailureNotice,
		Buttons:  []model.Action{actions.SupportAction()},
		Failed:   true,
	})
}

// drainAndClose discards a bounded remainder of the body so the connection
// can be reused, then closes it.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64<<10))
	r.Close()
}
