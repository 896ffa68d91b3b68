// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/summary"
	"github.com/jeranaias/souq-assist/internal/ui/components"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

// AskResult is the JSON payload of the ask command.
type AskResult struct {
	ConversationID string            `json:"conversationId"`
	Reply          *model.Message    `json:"reply"`
	Summaries      []summary.Summary `json:"summaries,omitempty"`
}

func (a *app) askCommand() *cobra.Command {
	var (
		noSave bool
		plain  bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the reply",
		Long: `Ask one question and print the reply.

The question is read from the arguments, or from stdin when none are given.
The exit code is 5 when the assistant could not be reached.`,
		Example: `  souq-assist ask "Find a commercial lawyer in Jeddah"
  souq-assist ask --json "What categories do you have?"
  echo "ابحث عن محامي" | souq-assist ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" && !IsTTY() {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				question = string(data)
			}
			return a.runAsk(cmd, question, !noSave, plain)
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the exchange to history")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the reply without markdown rendering")
	return cmd
}

func (a *app) runAsk(cmd *cobra.Command, question string, save, plain bool) error {
	if strings.TrimSpace(question) == "" {
		return &ValidationError{Field: "question", Reason: "a question is required", Example: `souq-assist ask "Find a lawyer"`}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := a.newClient(a.loadSession(), model.NewTranscript())
	reply, err := client.Send(ctx, question)
	if err != nil {
		return err
	}

	if save && a.cfg.Storage.AutoSave {
		a.saveTranscript(client.Transcript())
	}

	out := cmd.OutOrStdout()
	if a.jsonMode {
		result := AskResult{ConversationID: client.Transcript().ID(), Reply: reply}
		for _, inv := range reply.ToolInvocations {
			if s := summary.Summarize(inv.ToolName, inv.Result); !s.Empty() {
				result.Summaries = append(result.Summaries, s)
			}
		}
		if err := NewJSONResponse("ask", result).Print(out); err != nil {
			return err
		}
	} else {
		theme := styles.NewThemeNamed(a.cfg.UI.Theme)
		var md *components.MarkdownRenderer
		if a.cfg.UI.Markdown && !plain && IsStdoutTTY() {
			md = components.NewMarkdownRenderer(theme.IsDark)
		}
		fmt.Fprintln(out, formatReply(theme, reply, GetTerminalWidth(), md, a.cfg.UI.ShowToolResults))
	}

	if reply.Failed && !chatclient.IsCancelled(client.LastError()) {
		return errReplyFailed
	}
	return nil
}

// saveTranscript writes the transcript to history, logging failures.
func (a *app) saveTranscript(tr *model.Transcript) {
	store, err := a.openStore()
	if err != nil {
		a.log.WithError(err).Warn("history unavailable")
		return
	}
	defer store.Close()
	if err := store.Save(tr.Snapshot()); err != nil {
		a.log.WithError(err).Warn("could not save conversation")
	}
}

// formatReply renders a finalized reply for line-oriented output: the text,
// the tool result summaries, then the numbered quick actions.
func formatReply(theme *styles.Theme, reply *model.Message, width int, md *components.MarkdownRenderer, showTools bool) string {
	var sb strings.Builder

	switch {
	case reply.Failed:
		sb.WriteString(styles.RenderError(reply.Content))
	case md != nil:
		sb.WriteString(strings.TrimRight(md.Render(reply.Content, width), "\n"))
	default:
		sb.WriteString(WrapText(reply.Content, width))
	}

	if showTools {
		for _, inv := range reply.ToolInvocations {
			if block := components.RenderToolResult(theme, inv.ToolName, inv.Result, width); block != "" {
				sb.WriteString("\n\n")
				sb.WriteString(block)
			}
		}
	}

	if len(reply.Buttons) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(components.RenderActions(theme, reply.Buttons))
	}
	return sb.String()
}
