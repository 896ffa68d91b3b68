// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/summary"
	"github.com/jeranaias/souq-assist/internal/util"
)

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown. Tool invocations are
// listed under the reply that made them, with a one-line summary of the
// result when it has a known shape.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	sb.WriteString("Conversation: `" + conv.ID + "`  \n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.GetDisplayContent())
		sb.WriteString("\n\n")

		for _, inv := range msg.ToolInvocations {
			sb.WriteString("- tool `" + inv.ToolName + "`")
			if line := summaryLine(summary.Summarize(inv.ToolName, inv.Result)); line != "" {
				sb.WriteString(": " + line)
			}
			sb.WriteString("\n")
		}
		if len(msg.Buttons) > 0 {
			labels := make([]string, len(msg.Buttons))
			for i, b := range msg.Buttons {
				labels[i] = b.Label
			}
			sb.WriteString("\n_Suggested: " + strings.Join(labels, " | ") + "_\n")
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders a conversation as indented JSON.
func ExportJSON(conv *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(conv, "", "  ")
}

// Export renders conv in the named format: "md"/"markdown", "json" or "html".
func Export(conv *model.Conversation, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return []byte(ExportMarkdown(conv)), nil
	case "json":
		return ExportJSON(conv)
	case "html":
		return []byte(ExportHTML(conv)), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want md, json or html)", format)
	}
}

// FileExtension returns the file extension, without the dot, for an export
// format accepted by Export.
func FileExtension(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "json"
	case "html":
		return "html"
	default:
		return "md"
	}
}

func summaryLine(s summary.Summary) string {
	switch s.Kind {
	case summary.KindResourceList:
		return strconv.Itoa(s.Total) + " resources"
	case summary.KindCategoryTags:
		return strings.Join(s.Categories, ", ")
	case summary.KindResourceDetail:
		return s.Resource.Title
	default:
		return ""
	}
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList formats conversation metadata as a plain-text table.
func FormatList(metas []model.ConversationMeta) string {
	if len(metas) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + util.PadRight("ID", 14) + util.PadRight("Updated", 18) +
		util.PadRight("Msgs", 6) + "Title\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for i, m := range metas {
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4))
		sb.WriteString(util.PadRight(util.TruncateRunes(m.ID, 12), 14))
		sb.WriteString(util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 18))
		sb.WriteString(util.PadRight(strconv.Itoa(m.MessageCount), 6))
		sb.WriteString(util.TruncateWidth(m.Title, 30))
		sb.WriteString("\n")
	}
	return sb.String()
}
