// Package report turns pipeline output into the HTML work-note document the
// ticketing system ingests. Everything that reaches the output passes through
// html escaping; model text can never inject markup.
package report

import (
	"html"
	"strings"
)

// RenderMarkdown converts the restricted markdown subset the models emit
// (bullet lists, ``` fenced blocks, inline `code` spans, paragraphs) into
// HTML. Single line-by-line pass with two state flags.
func RenderMarkdown(text string) string {
	if text == "" {
		return ""
	}

	var parts []string
	inList := false
	inCode := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "```") {
			if inCode {
				parts = append(parts, "</code></pre>")
				inCode = false
			} else {
				if inList {
					parts = append(parts, "</ul>")
					inList = false
				}
				parts = append(parts, "<pre><code>")
				inCode = true
			}
			continue
		}

		if inCode {
			parts = append(parts, html.EscapeString(line))
			continue
		}

		if strings.HasPrefix(stripped, "* ") || strings.HasPrefix(stripped, "- ") {
			if !inList {
				parts = append(parts, "<ul>")
				inList = true
			}
			parts = append(parts, "<li>"+escapeInlineCode(stripped[2:])+"</li>")
			continue
		}

		if inList {
			parts = append(parts, "</ul>")
			inList = false
		}

		if stripped == "" {
			parts = append(parts, "<br/>")
		} else {
			parts = append(parts, "<p>"+escapeInlineCode(line)+"</p>")
		}
	}

	if inList {
		parts = append(parts, "</ul>")
	}
	// Close even without a matching fence; model output gets truncated.
	if inCode {
		parts = append(parts, "</code></pre>")
	}

	return strings.Join(parts, "\n")
}

// escapeInlineCode escapes HTML and converts `code` spans to <code> elements.
// An unmatched trailing backtick is literal text, not a span.
func escapeInlineCode(text string) string {
	var builder strings.Builder
	for {
		open := strings.IndexByte(text, '`')
		if open < 0 {
			break
		}
		close := strings.IndexByte(text[open+1:], '`')
		if close < 0 {
			break
		}
		span := text[open+1 : open+1+close]
		if span == "" {
			// `` carries no content; the first backtick is literal and the
			// second may still open a span.
			builder.WriteString(html.EscapeString(text[:open+1]))
			text = text[open+1:]
			continue
		}
		builder.WriteString(html.EscapeString(text[:open]))
		builder.WriteString("<code>" + html.EscapeString(span) + "</code>")
		text = text[open+2+close:]
	}
	builder.WriteString(html.EscapeString(text))
	return builder.String()
}
