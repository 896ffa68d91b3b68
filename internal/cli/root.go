// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/config"
	"github.com/jeranaias/souq-assist/internal/logger"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/session"
	"github.com/jeranaias/souq-assist/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APPLICATION STATE
// =============================================================================

// app carries the global flags and the configuration resolved from them.
type app struct {
	configPath string
	baseURL    string
	userID     string
	logLevel   string
	jsonMode   bool

	cfg *config.Config
	log logrus.FieldLogger
}

// NewRootCommand builds the souq-assist command tree.
func NewRootCommand() *cobra.Command {
	return newApp().rootCommand()
}

func newApp() *app {
	return &app{cfg: config.Default(), log: logger.WithComponent("cli")}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "souq-assist",
		Short: "Chat with the Souq marketplace and legal assistant",
		Long: `souq-assist is a terminal client for the Souq marketplace assistant.
It streams answers about services, categories and legal questions, shows
the resources the assistant looked up, and keeps a local history.

Examples:
  souq-assist                              Open the chat
  souq-assist ask "Find a lawyer in Riyadh" Ask one question
  echo "What categories exist?" | souq-assist ask
  souq-assist history list                 Show saved conversations
  souq-assist chat --resume 1              Continue the latest conversation
  souq-assist serve                        Run a local fixture endpoint`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		Args:              cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if IsTTY() && IsStdoutTTY() {
				return a.runChat(cmd, "")
			}
			return a.runREPL(cmd, newPipePrompter(cmd.InOrStdin()))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.souq-assist/config.toml)")
	flags.StringVar(&a.baseURL, "base-url", "", "platform base URL, overrides api.base_url")
	flags.StringVar(&a.userID, "as-user", "", "chat as this user ID instead of the saved session")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.jsonMode, "json", false, "print machine-readable JSON")

	root.AddCommand(
		a.chatCommand(),
		a.askCommand(),
		a.replCommand(),
		a.historyCommand(),
		a.sessionCommand(),
		a.serveCommand(),
		a.configCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	a := newApp()
	root := a.rootCommand()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReplyFailed) {
			out := root.ErrOrStderr()
			if a.jsonMode {
				out = root.OutOrStdout()
			}
			DisplayError(out, err, a.jsonMode)
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// SETUP
// =============================================================================

// setup loads configuration and configures logging before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	path, err := a.resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if err := logger.Init(level, cfg.Log.Format); err != nil {
		return NewValidationError("log level", a.logLevel, err.Error())
	}
	logger.SetOutput(cmd.ErrOrStderr())
	if cfg.Log.File != "" {
		if _, err := logger.OpenFile(cfg.Log.File); err != nil {
			return err
		}
	}

	lipgloss.SetColorProfile(GetColorProfile())
	return nil
}

func (a *app) resolveConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPath()
}

// loadConfig reads path, or returns defaults with environment overrides when
// the file does not exist yet.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return config.LoadFromPath(path)
}

// =============================================================================
// COLLABORATORS
// =============================================================================

func (a *app) sessionStore() (*session.Store, error) {
	path, err := a.cfg.SessionPath()
	if err != nil {
		return nil, err
	}
	return session.NewStore(path, session.MachinePassphrase()), nil
}

// loadSession returns the saved session, or the --as-user override. An
// unreadable session falls back to what could be recovered.
func (a *app) loadSession() session.Context {
	if a.userID != "" {
		return session.Context{UserID: a.userID}
	}
	store, err := a.sessionStore()
	if err != nil {
		a.log.WithError(err).Warn("session unavailable, chatting anonymously")
		return session.Anonymous()
	}
	sess, err := store.Load()
	if err != nil {
		a.log.WithError(err).Warn("could not read saved session")
	}
	return sess
}

// openStore opens the history database.
func (a *app) openStore() (*storage.ConversationStore, error) {
	path, err := a.cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

func (a *app) newClient(sess session.Context, tr *model.Transcript, opts ...chatclient.Option) *chatclient.Client {
	opts = append([]chatclient.Option{chatclient.WithLogger(logger.WithComponent("chatclient"))}, opts...)
	return chatclient.New(sess, tr, &chatclient.ClientConfig{
		BaseURL:       a.cfg.API.BaseURL,
		ChatPath:      a.cfg.API.ChatPath,
		HeaderTimeout: a.cfg.API.HeaderTimeout(),
		UserAgent:     a.cfg.API.UserAgent + "/" + Version,
	}, opts...)
}

// loadConversation resolves a conversation by ID or by its 1-based position
// in the history list.
func loadConversation(store *storage.ConversationStore, ref string) (*model.Conversation, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		return store.LoadByIndex(n)
	}
	return store.Load(ref)
}

// historyFilePath is where the REPL keeps its input history.
func historyFilePath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "input_history")
}
