// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/souq-assist/internal/config"
	"github.com/jeranaias/souq-assist/internal/logger"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/storage"
	"github.com/jeranaias/souq-assist/internal/ui/chat"
)

// DefaultLogFile receives logs while the full-screen chat owns the terminal.
const DefaultLogFile = "souq-assist.log"

func (a *app) chatCommand() *cobra.Command {
	var resume string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the full-screen chat (default)",
		Long: `Open the full-screen chat.

Type a question and press Enter. Replies stream in as they are written.
Press Esc to stop a reply, F1 for key bindings, and /help for commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, resume)
		},
	}
	cmd.Flags().StringVarP(&resume, "resume", "r", "", "continue a saved conversation (ID or list number)")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, resume string) error {
	if err := RequiresTTY("chat", "use 'souq-assist ask' or 'souq-assist repl' instead"); err != nil {
		return err
	}

	// Logs would corrupt the alternate screen.
	if a.cfg.Log.File == "" {
		if dir, err := config.ConfigDir(); err == nil {
			if f, err := logger.OpenFile(filepath.Join(dir, DefaultLogFile)); err == nil {
				defer f.Close()
			}
		}
	}

	store, err := a.openStore()
	if err != nil {
		a.log.WithError(err).Warn("history disabled")
		store = nil
	} else {
		defer store.Close()
	}

	tr, err := resumeTranscript(store, resume)
	if err != nil {
		return err
	}

	configPath, _ := a.resolveConfigPath()
	m := chat.New(chat.Options{
		Client:     a.newClient(a.loadSession(), tr),
		Store:      store,
		Config:     a.cfg,
		ConfigPath: configPath,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

// resumeTranscript starts a fresh transcript, or reopens ref from store.
func resumeTranscript(store *storage.ConversationStore, ref string) (*model.Transcript, error) {
	if ref == "" {
		return model.NewTranscript(), nil
	}
	if store == nil {
		return nil, NewCommandError("chat", "resume", storage.ErrConversationNotFound)
	}
	conv, err := loadConversation(store, ref)
	if err != nil {
		return nil, err
	}
	return model.NewTranscriptFrom(conv), nil
}
