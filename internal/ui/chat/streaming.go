// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/config"
)

// =============================================================================
// TRANSCRIPT CHANGE NOTIFIER
// =============================================================================

// changeNotifier turns transcript callbacks into Bubble Tea messages.
// Notifications coalesce: however many deltas arrive between two redraws,
// one TranscriptChangedMsg is delivered.
type changeNotifier struct {
	ch chan struct{}
}

func newChangeNotifier() *changeNotifier {
	return &changeNotifier{ch: make(chan struct{}, 1)}
}

// Notify never blocks; it runs on the send goroutine.
func (n *changeNotifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// wait returns a command that blocks until the next change.
func (n *changeNotifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return TranscriptChangedMsg{}
	}
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// sendCmd runs one send on its own goroutine. The context is cancelled by
// Esc or Ctrl+C through the cancel manager.
func sendCmd(ctx context.Context, client *chatclient.Client, text string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		reply, err := client.Send(ctx, text)
		return SendDoneMsg{Reply: reply, Err: err, Elapsed: time.Since(start)}
	}
}

// waitForConfig blocks until the watcher delivers a reload.
func waitForConfig(ch <-chan ConfigReloadedMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// watchConfig starts a watcher that feeds ch. It returns nil when path is
// empty or cannot be watched.
func watchConfig(path string, ch chan<- ConfigReloadedMsg) *config.Watcher {
	if path == "" {
		return nil
	}
	w, err := config.Watch(path, config.DefaultDebounce, func(cfg *config.Config, err error) {
		select {
		case ch <- ConfigReloadedMsg{Config: cfg, Err: err}:
		default:
		}
	})
	if err != nil {
		return nil
	}
	return w
}
