package report

import (
	"strings"
	"testing"
)

func TestRenderMarkdownListThenCodeBlock(t *testing.T) {
	input := "* step one\n\n```\nkubectl get pods\n```"

	got := strings.ReplaceAll(RenderMarkdown(input), "\n", "")
	want := "<ul><li>step one</li></ul><br/><pre><code>kubectl get pods</code></pre>"
	if got != want {
		t.Fatalf("unexpected rendering:\n got %s\nwant %s", got, want)
	}
}

func TestRenderMarkdownEmptyInput(t *testing.T) {
	if got := RenderMarkdown(""); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestRenderMarkdownPlainParagraphStructureIsStable(t *testing.T) {
	first := RenderMarkdown("plain sentence without markup")
	if first != "<p>plain sentence without markup</p>" {
		t.Fatalf("unexpected first pass: %s", first)
	}

	// Rendering its own output escapes the tags but keeps the same single
	// paragraph structure.
	second := RenderMarkdown(first)
	if !strings.HasPrefix(second, "<p>") || !strings.HasSuffix(second, "</p>") {
		t.Fatalf("expected a single paragraph, got %s", second)
	}
	if strings.Count(second, "<p>") != 1 {
		t.Fatalf("expected stable structure, got %s", second)
	}
}

func TestRenderMarkdownUnclosedFenceIsForceClosed(t *testing.T) {
	got := RenderMarkdown("```\noc get events")
	if !strings.HasSuffix(got, "</code></pre>") {
		t.Fatalf("expected force-closed code block, got %s", got)
	}
}

func TestRenderMarkdownBlankLineInsideCodeBlockIsKept(t *testing.T) {
	got := RenderMarkdown("```\nline one\n\nline two\n```")
	if strings.Contains(got, "<br/>") {
		t.Fatalf("blank line inside code must not become a break: %s", got)
	}
	if !strings.Contains(got, "line one\n\nline two") {
		t.Fatalf("expected verbatim code content, got %s", got)
	}
}

func TestRenderMarkdownBlankLineClosesList(t *testing.T) {
	got := strings.ReplaceAll(RenderMarkdown("* one\n\n* two"), "\n", "")
	want := "<ul><li>one</li></ul><br/><ul><li>two</li></ul>"
	if got != want {
		t.Fatalf("unexpected rendering:\n got %s\nwant %s", got, want)
	}
}

func TestRenderMarkdownDashBullets(t *testing.T) {
	got := strings.ReplaceAll(RenderMarkdown("- alpha\n- beta"), "\n", "")
	want := "<ul><li>alpha</li><li>beta</li></ul>"
	if got != want {
		t.Fatalf("unexpected rendering:\n got %s\nwant %s", got, want)
	}
}

func TestRenderMarkdownEscapesHTML(t *testing.T) {
	got := RenderMarkdown("<script>alert(1)</script>")
	if strings.Contains(got, "<script>") {
		t.Fatalf("raw HTML leaked into output: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Fatalf("expected escaped markup, got %s", got)
	}
}

func TestEscapeInlineCodeSpans(t *testing.T) {
	got := escapeInlineCode("run `kubectl get pods` & retry")
	want := "run <code>kubectl get pods</code> &amp; retry"
	if got != want {
		t.Fatalf("unexpected escaping:\n got %s\nwant %s", got, want)
	}
}

func TestEscapeInlineCodeUnmatchedBacktickIsLiteral(t *testing.T) {
	got := escapeInlineCode("dangling ` backtick")
	if strings.Contains(got, "<code>") {
		t.Fatalf("unmatched backtick must not open a span: %s", got)
	}
	if !strings.Contains(got, "`") {
		t.Fatalf("expected literal backtick, got %s", got)
	}
}

func TestEscapeInlineCodeEscapesInsideSpan(t *testing.T) {
	got := escapeInlineCode("`<b>`")
	want := "<code>&lt;b&gt;</code>"
	if got != want {
		t.Fatalf("unexpected escaping:\n got %s\nwant %s", got, want)
	}
}
