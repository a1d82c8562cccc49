package report

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/domain"
)

const (
	worknotesTitle = "<h2>MCP-First Diagnostics + RAG Correlation (Special Payment Project)</h2>"

	// The downstream ticketing system renders rich text only between these
	// markers.
	codeEnvelopeStart = "[code]"
	codeEnvelopeEnd   = "[/code]"
)

// BuildWorknotes assembles the two phase sections into one wrapped HTML
// document. The correlation section prefers the structured findings; without
// them the raw correlation text is rendered as markdown.
func BuildWorknotes(mcpFindings string, ragExplanation string, findings domain.Findings) string {
	if strings.TrimSpace(mcpFindings) == "" {
		mcpFindings = "(no MCP cluster findings text returned)"
	}
	mcpHTML := RenderMarkdown(mcpFindings)

	var ragHTML string
	if len(findings) > 0 {
		ragHTML = renderFindings(findings)
	} else {
		if strings.TrimSpace(ragExplanation) == "" {
			ragExplanation = "(no formatted RAG text returned)"
		}
		ragHTML = RenderMarkdown(ragExplanation)
	}

	document := worknotesTitle + "\n" +
		"<hr />\n" +
		"<h3>Phase 1 – MCP diagnostics (live cluster)</h3>\n" +
		mcpHTML + "\n" +
		"<h3>Phase 2 – RAG correlation (knowledge base)</h3>\n" +
		ragHTML + "\n" +
		"<hr />\n<p><strong>End of diagnostics</strong></p>\n"

	return codeEnvelopeStart + document + codeEnvelopeEnd
}

// renderFindings emits the numbered sections in fixed order, skipping any
// whose source field is absent or empty.
func renderFindings(findings domain.Findings) string {
	var parts []string

	if probable := findings.ProbableCause(); probable != "" {
		parts = append(parts, "<h4>1) Probable cause</h4>")
		parts = append(parts, "<p>"+html.EscapeString(probable)+"</p>")
	}

	if evidence := findings.EvidenceMapping(); len(evidence) > 0 {
		parts = append(parts, "<h4>2) Evidence mapping</h4>", "<ul>")
		for _, item := range evidence {
			parts = append(parts, "<li>"+html.EscapeString(stringify(item))+"</li>")
		}
		parts = append(parts, "</ul>")
	}

	if commands := findings.NextStepCommands(); len(commands) > 0 {
		parts = append(parts, "<h4>3) Next steps</h4>")
		parts = append(parts, "<pre><code>"+html.EscapeString(strings.Join(commands, "\n"))+"</code></pre>")
	}

	if proposed := findings.ProposedRemediation(); len(proposed) > 0 {
		encoded, err := json.MarshalIndent(proposed, "", "  ")
		dump := ""
		if err != nil {
			dump = fmt.Sprint(proposed)
		} else {
			dump = string(encoded)
		}
		parts = append(parts, "<h4>4) Proposed remediation via AAP</h4>")
		parts = append(parts, "<pre><code>"+html.EscapeString(dump)+"</code></pre>")
	}

	if kb := findings.KeyKBEvidence(); len(kb) > 0 {
		parts = append(parts, "<h4>5) Key KB evidence</h4>", "<ul>")
		for _, item := range kb {
			// Internal fallback sources should not be named in the ticket.
			text := strings.ReplaceAll(stringify(item), "canonical fallback", "project documentation")
			parts = append(parts, "<li>"+html.EscapeString(text)+"</li>")
		}
		parts = append(parts, "</ul>")
	}

	if ref := strings.TrimSpace(findings.ReferenceDocument()); ref != "" {
		parts = append(parts, "<h4>6) Reference document</h4>")
		parts = append(parts, "<p><em>"+html.EscapeString(ref)+"</em></p>")
	}

	return strings.Join(parts, "\n")
}

func stringify(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}
