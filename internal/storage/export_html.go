// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/souq-assist/internal/model"
	"github.com/jeranaias/souq-assist/internal/summary"
)

// =============================================================================
// HTML EXPORT
// =============================================================================

// ExportHTML renders a conversation as a standalone HTML page. Every piece of
// message and tool text is escaped; dir="auto" lets Arabic paragraphs run
// right to left.
func ExportHTML(conv *model.Conversation) string {
	var sb strings.Builder
	title := html.EscapeString(conv.GetTitle())

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", title))
	sb.WriteString("    <meta name=\"generator\" content=\"souq-assist\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339)))
	sb.WriteString("    <style>\n" + htmlCSS + "    </style>\n")
	sb.WriteString("</head>\n<body>\n    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1 dir=\"auto\">%s</h1>\n", title))
	sb.WriteString(fmt.Sprintf("            <p class=\"meta\">%s · %d messages · <code>%s</code></p>\n",
		conv.CreatedAt.Format("January 2, 2006 15:04"), len(conv.Messages), html.EscapeString(conv.ID)))
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(renderHTMLMessage(msg))
	}
	sb.WriteString("        </main>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")
	return sb.String()
}

func renderHTMLMessage(msg *model.Message) string {
	var sb strings.Builder

	class := string(msg.Role) + "-message"
	if msg.Failed {
		class += " failed"
	}
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s\">\n", class))
	sb.WriteString(fmt.Sprintf("                <div class=\"message-header\"><span class=\"role\">%s</span> <span class=\"time\">%s</span></div>\n",
		html.EscapeString(msg.Role.DisplayName()), msg.Timestamp.Format("15:04")))

	sb.WriteString("                <div class=\"message-content\" dir=\"auto\">\n")
	sb.WriteString(htmlParagraphs(msg.GetDisplayContent()))
	sb.WriteString("                </div>\n")

	for _, inv := range msg.ToolInvocations {
		sb.WriteString(renderHTMLTool(inv))
	}

	if len(msg.Buttons) > 0 {
		sb.WriteString("                <div class=\"actions\">")
		for _, b := range msg.Buttons {
			sb.WriteString(fmt.Sprintf("<span class=\"action %s\">%s</span>", html.EscapeString(string(b.Kind)), html.EscapeString(b.Label)))
		}
		sb.WriteString("</div>\n")
	}
	sb.WriteString("            </div>\n")
	return sb.String()
}

// htmlParagraphs escapes text and turns blank-line separated blocks into
// paragraphs with line breaks.
func htmlParagraphs(text string) string {
	var sb strings.Builder
	for _, block := range strings.Split(strings.TrimSpace(text), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(line)
		}
		sb.WriteString("                    <p>" + strings.Join(lines, "<br>") + "</p>\n")
	}
	return sb.String()
}

func renderHTMLTool(inv *model.ToolInvocation) string {
	s := summary.Summarize(inv.ToolName, inv.Result)

	var sb strings.Builder
	sb.WriteString("                <div class=\"tool\">\n")
	sb.WriteString(fmt.Sprintf("                    <div class=\"tool-name\">%s</div>\n", html.EscapeString(inv.ToolName)))

	switch s.Kind {
	case summary.KindResourceList:
		sb.WriteString(fmt.Sprintf("                    <p class=\"meta\">Showing %d of %d</p>\n", len(s.Resources), s.Total))
		sb.WriteString("                    <ol>\n")
		for _, r := range s.Resources {
			sb.WriteString("                        <li dir=\"auto\">" + htmlResource(r) + "</li>\n")
		}
		sb.WriteString("                    </ol>\n")
	case summary.KindCategoryTags:
		sb.WriteString("                    <div class=\"tags\">")
		for _, c := range s.Categories {
			sb.WriteString("<span class=\"tag\" dir=\"auto\">" + html.EscapeString(c) + "</span>")
		}
		sb.WriteString("</div>\n")
	case summary.KindResourceDetail:
		sb.WriteString("                    <div class=\"card\" dir=\"auto\">" + htmlResource(*s.Resource))
		if s.Resource.Description != "" {
			sb.WriteString("<p>" + html.EscapeString(s.Resource.Description) + "</p>")
		}
		sb.WriteString("</div>\n")
	}

	sb.WriteString("                </div>\n")
	return sb.String()
}

func htmlResource(r summary.Resource) string {
	var parts []string
	title := html.EscapeString(r.Title)
	if r.URL != "" {
		title = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(r.URL), title)
	}
	parts = append(parts, "<strong>"+title+"</strong>")
	if r.Price != "" {
		parts = append(parts, "<span class=\"price\">"+html.EscapeString(r.Price)+"</span>")
	}
	for _, meta := range []string{r.Category, r.Location, r.Provider} {
		if meta != "" {
			parts = append(parts, html.EscapeString(meta))
		}
	}
	return strings.Join(parts, " · ")
}

const htmlCSS = `        body { font-family: -apple-system, "Segoe UI", "Noto Sans Arabic", sans-serif; background: #f7f5f0; color: #1f2a24; margin: 0; }
        .container { max-width: 820px; margin: 0 auto; padding: 24px; }
        .header h1 { margin-bottom: 4px; }
        .meta { color: #6b7280; font-size: 0.9em; }
        .message { background: #fff; border-radius: 8px; padding: 12px 16px; margin: 12px 0; box-shadow: 0 1px 2px rgba(0,0,0,0.06); }
        .user-message { border-left: 4px solid #c9a86a; }
        .assistant-message { border-left: 4px solid #2f7d5b; }
        .failed { border-left-color: #c2413a; }
        .message-header .role { font-weight: 600; }
        .message-header .time { color: #9ca3af; font-size: 0.85em; }
        .tool { background: #f1f5f3; border-radius: 6px; padding: 8px 12px; margin-top: 8px; }
        .tool-name { font-family: monospace; color: #2f7d5b; }
        .tag, .action { display: inline-block; border-radius: 12px; padding: 2px 10px; margin: 2px 4px 2px 0; font-size: 0.9em; }
        .tag { background: #e3efe8; }
        .action { border: 1px solid #2f7d5b; color: #2f7d5b; }
        .action.contact_support { border-color: #c2413a; color: #c2413a; }
        .price { color: #b7791f; font-weight: 600; }
`
