// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/ui/components"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

// noticeTTL is how long a status bar notice stays visible.
const noticeTTL = 3 * time.Second

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TranscriptChangedMsg:
		m.refresh()
		return m, m.changes.wait()

	case SendDoneMsg:
		return m.handleSendDone(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.status.SetSpinner(m.spinner.View())
		return m, cmd

	case SavedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("save conversation failed")
			return m.flash("Save failed")
		}
		return m, nil

	case CopiedMsg:
		if msg.Err != nil {
			return m.flash("Copy failed: " + msg.Err.Error())
		}
		return m.flash("Copied")

	case ExportedMsg:
		if msg.Err != nil {
			m.note = styles.RenderError("Export failed: " + msg.Err.Error())
		} else {
			m.note = styles.RenderInfo("Exported to " + msg.Path)
		}
		m.refresh()
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg)
		return m, waitForConfig(m.configCh)

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.status.SetNotice("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.ready = true
	m.theme.SetSize(msg.Width, msg.Height)
	m.header.SetWidth(msg.Width)
	m.status.SetWidth(msg.Width)
	m.help.Width = msg.Width
	m.input.Width = msg.Width - 8

	m.viewport.Width = msg.Width
	m.viewport.Height = m.viewportHeight()
	m.refresh()
	return m, nil
}

// viewportHeight is what remains after the header, input box and status
// bar, plus the help block when shown.
func (m Model) viewportHeight() int {
	chrome := 1 + 3 + 1
	if m.showHelp {
		chrome += lipgloss.Height(m.help.FullHelpView(m.keys.FullHelp()))
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	return h
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.busy {
			m.cancelMgr.cancel()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.busy {
			m.cancelMgr.cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, copyCmd(m.lastReplyText())

	case key.Matches(msg, m.keys.ToggleTools):
		m.showTools = !m.showTools
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.viewport.Height = m.viewportHeight()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			return m, nil
		}
		text := m.input.Value()
		m.input.Reset()
		return m.submit(text)
	}

	// Input is disabled while a reply streams.
	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SENDING
// =============================================================================

// submit routes an input line to a slash command or a send.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	cmd := ParseCommand(text)
	switch cmd.Kind {
	case CmdNone:
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		return m.startSend(text)

	case CmdAction:
		action, err := ResolveAction(cmd, m.lastButtons())
		if err != nil {
			m.note = styles.RenderWarning(err.Error())
			m.refresh()
			return m, nil
		}
		return m.startSend(action.QueryText())

	case CmdHelp:
		m.note = HelpText
	case CmdNew:
		return m.newConversation()
	case CmdCopy:
		return m, copyCmd(m.lastReplyText())
	case CmdTools:
		m.showTools = !m.showTools
	case CmdSave:
		if m.store == nil {
			m.note = styles.RenderWarning("History is disabled.")
			break
		}
		return m, saveCmd(m.store, m.client.Transcript().Snapshot())
	case CmdExport:
		return m, exportCmd(m.client.Transcript().Snapshot(), cmd.Arg, exportDir())
	case CmdQuit:
		return m, tea.Quit
	default:
		m.note = styles.RenderWarning("Unknown command /" + cmd.Arg + ". Type /help.")
	}
	m.refresh()
	return m, nil
}

// startSend disables input and runs the send on its own goroutine.
func (m Model) startSend(text string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	m.busy = true
	m.state = components.StatusSending
	m.note = ""
	m.input.Blur()
	m.status.SetSpinner(m.spinner.View())
	m.refresh()

	return m, tea.Batch(sendCmd(ctx, m.client, text), m.spinner.Tick)
}

func (m Model) handleSendDone(msg SendDoneMsg) (tea.Model, tea.Cmd) {
	m.cancelMgr.cancel()
	m.busy = false
	m.input.Focus()

	if msg.Err != nil {
		m.state = components.StatusReady
		if !errors.Is(msg.Err, chatclient.ErrEmptyMessage) {
			m.note = styles.RenderWarning(msg.Err.Error())
		}
		m.refresh()
		return m, nil
	}

	err := m.client.LastError()
	switch {
	case err == nil:
		m.state = components.StatusReady
	case chatclient.IsCancelled(err):
		m.state = components.StatusCancelled
	default:
		m.state = components.StatusFailed
	}
	m.refresh()

	var save tea.Cmd
	if m.autoSave {
		save = saveCmd(m.store, m.client.Transcript().Snapshot())
	}
	return m, save
}

// newConversation saves the current transcript and starts a fresh one.
func (m Model) newConversation() (tea.Model, tea.Cmd) {
	save := saveCmd(m.store, m.client.Transcript().Snapshot())

	tr := model.NewTranscript()
	if err := m.client.Reset(tr); err != nil {
		m.note = styles.RenderWarning(err.Error())
		m.refresh()
		return m, nil
	}
	tr.OnChange(m.changes.Notify)

	m.state = components.StatusReady
	m.note = ""
	m.refresh()
	return m, save
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) lastReply() *model.Message {
	msgs := m.client.Transcript().Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant && !msgs[i].IsStreaming {
			return msgs[i]
		}
	}
	return nil
}

func (m Model) lastReplyText() string {
	if r := m.lastReply(); r != nil {
		return r.Content
	}
	return ""
}

func (m Model) lastButtons() []model.Action {
	if r := m.lastReply(); r != nil {
		return r.Buttons
	}
	return nil
}

// flash shows a short-lived status bar notice.
func (m Model) flash(notice string) (tea.Model, tea.Cmd) {
	m.noticeID++
	id := m.noticeID
	m.status.SetNotice(notice)
	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{id: id} })
}

// applyConfig picks up UI settings from a reloaded config file. Endpoint
// and session changes need a restart.
func (m *Model) applyConfig(msg ConfigReloadedMsg) {
	if msg.Err != nil || msg.Config == nil {
		m.log.WithError(msg.Err).Warn("config reload rejected")
		return
	}
	cfg := msg.Config
	m.showTools = cfg.UI.ShowToolResults
	m.autoSave = cfg.Storage.AutoSave
	if cfg.UI.Markdown && m.markdown == nil {
		m.markdown = components.NewMarkdownRenderer(m.theme.IsDark)
	} else if !cfg.UI.Markdown {
		m.markdown = nil
	}
	m.cfg = cfg
	m.log.Info("config reloaded")
	m.refresh()
}
