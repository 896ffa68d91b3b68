// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/config"
	"github.com/jeranaias/souq-assist/internal/logger"
	"github.com/jeranaias/souq-assist/internal/storage"
	"github.com/jeranaias/souq-assist/internal/ui/components"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

// Placeholder is shown in the empty input.
const Placeholder = "Ask about services, lawyers or categories..."

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the chat view to its collaborators. Client is required.
type Options struct {
	Client *chatclient.Client
	Store  *storage.ConversationStore // nil disables saving
	Config *config.Config

	// ConfigPath is watched for live UI changes; empty disables watching.
	ConfigPath string

	Theme *styles.Theme
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	client *chatclient.Client
	store  *storage.ConversationStore
	cfg    *config.Config
	log    logrus.FieldLogger

	// Styling
	theme    *styles.Theme
	markdown *components.MarkdownRenderer
	header   *components.Header
	status   *components.StatusBar

	// Bubbles
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap

	// Shared across Model copies
	cancelMgr *cancelManager
	changes   *changeNotifier
	configCh  chan ConfigReloadedMsg
	watcher   *config.Watcher

	// Dimensions
	width  int
	height int
	ready  bool

	// State
	busy      bool
	state     components.Status
	showTools bool
	showHelp  bool
	autoSave  bool
	note      string // Local output such as /help, shown under the transcript
	noticeID  int
}

// New creates the chat model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewThemeNamed(cfg.UI.Theme)
	}

	input := textinput.New()
	input.Placeholder = Placeholder
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.AssistantLabel

	m := Model{
		client:    opts.Client,
		store:     opts.Store,
		cfg:       cfg,
		log:       logger.WithComponent("chat"),
		theme:     theme,
		header:    components.NewHeader(theme),
		status:    components.NewStatusBar(theme),
		viewport:  viewport.New(80, 20),
		input:     input,
		spinner:   sp,
		help:      help.New(),
		keys:      DefaultKeyMap(),
		cancelMgr: newCancelManager(),
		changes:   newChangeNotifier(),
		configCh:  make(chan ConfigReloadedMsg, 1),
		width:     80,
		height:    24,
		showTools: cfg.UI.ShowToolResults,
		autoSave:  cfg.Storage.AutoSave,
	}
	if cfg.UI.Markdown {
		m.markdown = components.NewMarkdownRenderer(theme.IsDark)
	}

	m.header.SetSession(opts.Client.Session())
	m.header.SetEndpoint(cfg.API.BaseURL + cfg.API.ChatPath)
	opts.Client.Transcript().OnChange(m.changes.Notify)
	m.watcher = watchConfig(opts.ConfigPath, m.configCh)

	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.changes.wait(), waitForConfig(m.configCh))
}

// Close stops the config watcher and any send still in flight.
func (m Model) Close() error {
	m.cancelMgr.cancel()
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// Busy reports whether a reply is streaming. Input is disabled while true.
func (m Model) Busy() bool {
	return m.busy
}

// Client returns the chat client.
func (m Model) Client() *chatclient.Client {
	return m.client
}

// refresh re-renders the transcript into the viewport, following the
// bottom when the user had not scrolled up.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()

	content := components.RenderTranscript(m.theme, m.client.Transcript().Messages(),
		m.viewport.Width, m.markdown, m.showTools)
	if content == "" {
		content = m.welcome()
	}
	if m.note != "" {
		content += "\n\n" + m.theme.Muted.Render(m.note)
	}
	m.viewport.SetContent(content)

	if atBottom || m.busy {
		m.viewport.GotoBottom()
	}

	m.status.SetMessageCount(m.client.Transcript().Len())
	m.status.SetStatus(m.state)
}

func (m Model) welcome() string {
	return m.theme.AssistantLabel.Render("Marhaba!") + " " +
		m.theme.Muted.Render("Ask about marketplace services, find a lawyer, or type /help.")
}
