// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/storage"
	"github.com/jeranaias/souq-assist/internal/ui/chat"
	"github.com/jeranaias/souq-assist/internal/ui/components"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
	"github.com/jeranaias/souq-assist/internal/util"
	"github.com/jeranaias/souq-assist/internal/wire"
)

// ReplPrompt is shown before every line.
const ReplPrompt = "souq> "

// =============================================================================
// LINE INPUT
// =============================================================================

// prompter reads one line of input. io.EOF ends the session.
type prompter interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linePrompter provides history and line editing on a terminal.
type linePrompter struct {
	line        *liner.State
	historyFile string
}

func newLinePrompter(historyFile string) *linePrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	p := &linePrompter{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return p
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the input history with 0600 permissions.
func (p *linePrompter) Close() error {
	if err := os.MkdirAll(filepath.Dir(p.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			p.line.WriteHistory(f)
			f.Close()
		}
	}
	return p.line.Close()
}

// pipePrompter reads lines from a non-interactive input.
type pipePrompter struct {
	scanner *bufio.Scanner
}

func newPipePrompter(r io.Reader) *pipePrompter {
	return &pipePrompter{scanner: bufio.NewScanner(r)}
}

func (p *pipePrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *pipePrompter) Close() error { return nil }

// =============================================================================
// COMMAND
// =============================================================================

func (a *app) replCommand() *cobra.Command {
	var resume string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat line by line without the full-screen view",
		Long: `Chat line by line. Replies stream to the terminal as they arrive.

Press Ctrl+C to stop a reply and Ctrl+D to leave. Type /help for commands.
When stdin is not a terminal, each input line is sent as one message.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p prompter
			if IsTTY() {
				p = newLinePrompter(historyFilePath())
			} else {
				p = newPipePrompter(cmd.InOrStdin())
			}
			return a.runREPLFrom(cmd, p, resume)
		},
	}
	cmd.Flags().StringVarP(&resume, "resume", "r", "", "continue a saved conversation (ID or list number)")
	return cmd
}

func (a *app) runREPL(cmd *cobra.Command, p prompter) error {
	return a.runREPLFrom(cmd, p, "")
}

func (a *app) runREPLFrom(cmd *cobra.Command, p prompter, resume string) error {
	defer p.Close()

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

	r := &repl{
		out:       cmd.OutOrStdout(),
		prompt:    p,
		store:     store,
		theme:     styles.NewThemeNamed(a.cfg.UI.Theme),
		showTools: a.cfg.UI.ShowToolResults,
		autoSave:  a.cfg.Storage.AutoSave,
	}
	r.client = a.newClient(a.loadSession(), tr, chatclient.WithEventHook(r.onEvent))
	return r.run(cmd.Context())
}

// =============================================================================
// REPL SESSION
// =============================================================================

type repl struct {
	out       io.Writer
	prompt    prompter
	client    *chatclient.Client
	store     *storage.ConversationStore
	theme     *styles.Theme
	showTools bool
	autoSave  bool

	streamed bool // Text was printed for the reply in flight
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintf(r.out, "%s %s\n", components.AppTitle, r.theme.Muted.Render("· "+r.client.Session().String()+" · /help for commands, Ctrl+D to quit"))
	if n := r.client.Transcript().Len(); n > 0 {
		fmt.Fprintf(r.out, "Resumed conversation with %d messages.\n", n)
	}

	for {
		line, err := r.prompt.Prompt(ReplPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return r.save()
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		quit, err := r.handle(ctx, line)
		if err != nil {
			fmt.Fprintln(r.out, styles.RenderWarning(err.Error()))
		}
		if quit {
			return r.save()
		}
	}
}

// handle runs one input line. It reports true when the session should end.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	cmd := chat.ParseCommand(line)
	switch cmd.Kind {
	case chat.CmdNone:
		return false, r.send(ctx, line)
	case chat.CmdAction:
		action, err := chat.ResolveAction(cmd, r.lastButtons())
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, r.theme.Muted.Render("> "+action.QueryText()))
		return false, r.send(ctx, action.QueryText())
	case chat.CmdHelp:
		fmt.Fprintln(r.out, chat.HelpText)
	case chat.CmdNew:
		if err := r.save(); err != nil {
			return false, err
		}
		if err := r.client.Reset(model.NewTranscript()); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, styles.RenderInfo("Started a new conversation."))
	case chat.CmdCopy:
		text := r.lastReplyText()
		if text == "" {
			return false, fmt.Errorf("nothing to copy")
		}
		if err := clipboard.WriteAll(text); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, styles.RenderInfo("Copied the last reply."))
	case chat.CmdTools:
		r.showTools = !r.showTools
		state := "hidden"
		if r.showTools {
			state = "shown"
		}
		fmt.Fprintln(r.out, styles.RenderInfo("Tool results "+state+"."))
	case chat.CmdSave:
		if r.store == nil {
			return false, fmt.Errorf("history is unavailable")
		}
		if err := r.store.Save(r.client.Transcript().Snapshot()); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, styles.RenderInfo("Saved."))
	case chat.CmdExport:
		path, err := r.export(cmd.Arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, styles.RenderInfo("Exported to "+path))
	case chat.CmdQuit:
		return true, nil
	default:
		return false, fmt.Errorf("unknown command /%s, type /help", cmd.Arg)
	}
	return false, nil
}

// send streams one reply. Ctrl+C stops the reply, not the session.
func (r *repl) send(ctx context.Context, text string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r.streamed = false
	reply, err := r.client.Send(ctx, text)
	if err != nil {
		return err
	}

	// Deltas were printed live; show whatever replaced or follows them.
	width := GetTerminalWidth()
	var sb strings.Builder
	switch {
	case reply.Failed:
		if r.streamed {
			sb.WriteString("\n")
		}
		sb.WriteString(styles.RenderError(reply.Content))
	case !r.streamed:
		sb.WriteString(WrapText(reply.Content, width))
	case chatclient.IsCancelled(r.client.LastError()):
		sb.WriteString("\n" + r.theme.Muted.Render("(stopped)"))
	}
	if r.showTools {
		for _, inv := range reply.ToolInvocations {
			if block := components.RenderToolResult(r.theme, inv.ToolName, inv.Result, width); block != "" {
				sb.WriteString("\n\n" + block)
			}
		}
	}
	if len(reply.Buttons) > 0 {
		sb.WriteString("\n\n" + components.RenderActions(r.theme, reply.Buttons))
	}
	fmt.Fprintln(r.out, sb.String())
	fmt.Fprintln(r.out)

	if r.autoSave {
		return r.save()
	}
	return nil
}

// onEvent prints text deltas as they are applied to the transcript.
func (r *repl) onEvent(ev wire.Event) {
	if td, ok := ev.(wire.TextDelta); ok && td.Text != "" {
		r.streamed = true
		fmt.Fprint(r.out, td.Text)
	}
}

func (r *repl) save() error {
	if r.store == nil {
		return nil
	}
	conv := r.client.Transcript().Snapshot()
	if len(conv.Messages) == 0 {
		return nil
	}
	return r.store.Save(conv)
}

func (r *repl) export(format string) (string, error) {
	conv := r.client.Transcript().Snapshot()
	if len(conv.Messages) == 0 {
		return "", fmt.Errorf("nothing to export")
	}
	data, err := storage.Export(conv, format)
	if err != nil {
		return "", err
	}
	path := conv.ID + "." + storage.FileExtension(format)
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *repl) lastReply() *model.Message {
	if last := r.client.Transcript().Last(); last != nil && last.Role == model.RoleAssistant {
		return last
	}
	return nil
}

func (r *repl) lastButtons() []model.Action {
	if m := r.lastReply(); m != nil {
		return m.Buttons
	}
	return nil
}

func (r *repl) lastReplyText() string {
	if m := r.lastReply(); m != nil {
		return m.Content
	}
	return ""
}
