// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/storage"
	"github.com/jeranaias/souq-assist/internal/ui/components"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
	"github.com/jeranaias/souq-assist/internal/util"
)

func (a *app) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List, show, export and delete saved conversations",
		Long: `Manage saved conversations.

Conversations are referred to by ID or by their number in 'history list',
where 1 is the most recently updated.`,
	}
	cmd.AddCommand(
		a.historyListCommand(),
		a.historyShowCommand(),
		a.historyExportCommand(),
		a.historyDeleteCommand(),
		a.historyClearCommand(),
	)
	return cmd
}

// withStore opens the history database for the duration of fn.
func (a *app) withStore(fn func(*storage.ConversationStore) error) error {
	store, err := a.openStore()
	if err != nil {
		return NewCommandError("history", "open", err)
	}
	defer store.Close()
	return fn(store)
}

func (a *app) historyListCommand() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.ConversationStore) error {
				var metas []model.ConversationMeta
				var err error
				if search != "" {
					metas, err = store.Search(search)
				} else {
					metas, err = store.List()
				}
				if err != nil {
					return err
				}
				if metas == nil {
					metas = []model.ConversationMeta{}
				}
				return printResult(cmd.OutOrStdout(), a.jsonMode, "history list", metas, func() error {
					_, err := fmt.Fprint(cmd.OutOrStdout(), storage.FormatList(metas))
					return err
				})
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only conversations containing this text")
	return cmd
}

func (a *app) historyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|number>",
		Short: "Print a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.ConversationStore) error {
				conv, err := loadConversation(store, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				return printResult(out, a.jsonMode, "history show", conv, func() error {
					theme := styles.NewThemeNamed(a.cfg.UI.Theme)
					fmt.Fprintln(out, theme.HeaderTitle.Render(conv.GetTitle()))
					fmt.Fprintln(out, theme.Timestamp.Render(conv.UpdatedAt.Format("2006-01-02 15:04")+" · "+conv.ID))
					fmt.Fprintln(out)
					_, err := fmt.Fprintln(out, components.RenderTranscript(theme, conv.Messages, GetTerminalWidth(), nil, a.cfg.UI.ShowToolResults))
					return err
				})
			})
		},
	}
}

func (a *app) historyExportCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <id|number>",
		Short: "Export a conversation as Markdown, JSON or HTML",
		Example: `  souq-assist history export 1
  souq-assist history export conv_1a2b --format json -o contract.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.ConversationStore) error {
				conv, err := loadConversation(store, args[0])
				if err != nil {
					return err
				}
				data, err := storage.Export(conv, format)
				if err != nil {
					return NewValidationError("format", format, "must be md, json or html")
				}
				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := util.AtomicWriteFile(output, data, 0o644); err != nil {
					return NewCommandError("history", "export", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderInfo("Exported to "+output))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "export format: md, json or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func (a *app) historyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|number>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.ConversationStore) error {
				conv, err := loadConversation(store, args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(conv.ID); err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), a.jsonMode, "history delete", map[string]string{"deleted": conv.ID}, func() error {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Deleted "+conv.ID)
					return err
				})
			})
		},
	}
}

func (a *app) historyClearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !IsTTY() {
					return NewValidationError("confirmation", "", "pass --yes to clear history non-interactively")
				}
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete all saved conversations?") {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			return a.withStore(func(store *storage.ConversationStore) error {
				if err := store.Clear(); err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), a.jsonMode, "history clear", map[string]bool{"cleared": true}, func() error {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
