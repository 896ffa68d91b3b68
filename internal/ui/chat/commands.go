// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/souq-assist/internal/actions"
	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/storage"
	"github.com/jeranaias/souq-assist/internal/util"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// CommandKind identifies a parsed slash command.
type CommandKind int

const (
	CmdNone   CommandKind = iota // Plain text to send
	CmdAction                    // /1, /2, /3 or /action <label>
	CmdHelp
	CmdNew
	CmdCopy
	CmdTools
	CmdSave
	CmdExport
	CmdQuit
	CmdUnknown
)

// Command is a parsed input line.
type Command struct {
	Kind  CommandKind
	Index int    // 1-based action number for CmdAction
	Arg   string // Action label, export format, or the unknown command
}

// ParseCommand classifies an input line. Anything not starting with "/" is
// CmdNone.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || input == "/" {
		return Command{Kind: CmdNone}
	}

	name, arg, _ := strings.Cut(input[1:], " ")
	arg = strings.TrimSpace(arg)

	if n, err := strconv.Atoi(name); err == nil {
		return Command{Kind: CmdAction, Index: n}
	}

	switch strings.ToLower(name) {
	case "action", "a":
		return Command{Kind: CmdAction, Arg: arg}
	case "help", "h", "?":
		return Command{Kind: CmdHelp}
	case "new", "clear":
		return Command{Kind: CmdNew}
	case "copy":
		return Command{Kind: CmdCopy}
	case "tools":
		return Command{Kind: CmdTools}
	case "save":
		return Command{Kind: CmdSave}
	case "export":
		if arg == "" {
			arg = "md"
		}
		return Command{Kind: CmdExport, Arg: arg}
	case "quit", "exit", "q":
		return Command{Kind: CmdQuit}
	default:
		return Command{Kind: CmdUnknown, Arg: name}
	}
}

// ResolveAction finds the quick action a command refers to among the last
// reply's buttons.
func ResolveAction(cmd Command, buttons []model.Action) (model.Action, error) {
	if len(buttons) == 0 {
		return model.Action{}, fmt.Errorf("no quick actions on the last reply")
	}
	if cmd.Arg != "" {
		if a, ok := actions.Find(buttons, cmd.Arg); ok {
			return a, nil
		}
		return model.Action{}, fmt.Errorf("no quick action named %q", cmd.Arg)
	}
	if cmd.Index < 1 || cmd.Index > len(buttons) {
		return model.Action{}, fmt.Errorf("choose an action between 1 and %d", len(buttons))
	}
	return buttons[cmd.Index-1], nil
}

// HelpText lists the slash commands.
const HelpText = `Commands:
  /1 /2 /3         run a quick action from the last reply
  /action <label>  run a quick action by name
  /new             start a new conversation
  /copy            copy the last reply
  /tools           show or hide tool results
  /save            save the conversation now
  /export [md|json|html] write the conversation to the current directory
  /quit            leave the chat`

// =============================================================================
// SIDE-EFFECT COMMANDS
// =============================================================================

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if strings.TrimSpace(text) == "" {
			return CopiedMsg{Err: fmt.Errorf("nothing to copy")}
		}
		return CopiedMsg{Err: clipboard.WriteAll(text)}
	}
}

func saveCmd(store *storage.ConversationStore, conv *model.Conversation) tea.Cmd {
	if store == nil || conv == nil || len(conv.Messages) == 0 {
		return nil
	}
	return func() tea.Msg {
		return SavedMsg{Err: store.Save(conv)}
	}
}

func exportCmd(conv *model.Conversation, format, dir string) tea.Cmd {
	return func() tea.Msg {
		data, err := storage.Export(conv, format)
		if err != nil {
			return ExportedMsg{Err: err}
		}
		path := filepath.Join(dir, conv.ID+"."+storage.FileExtension(format))
		if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
			return ExportedMsg{Err: err}
		}
		return ExportedMsg{Path: path}
	}
}

// exportDir is where /export writes; the working directory by default.
func exportDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
