package agents

import (
	"strings"
	"testing"
)

func TestDeriveIncidentQuestionFromString(t *testing.T) {
	if got := DeriveIncidentQuestion("  pods restarting  "); got != "pods restarting" {
		t.Fatalf("expected trimmed text, got %q", got)
	}
}

func TestDeriveIncidentQuestionKeyPriority(t *testing.T) {
	payload := map[string]any{
		"short_description": "short",
		"description":       "longer description",
		"question":          "the question",
	}

	if got := DeriveIncidentQuestion(payload); got != "the question" {
		t.Fatalf("expected 'question' to win over lower-priority keys, got %q", got)
	}
}

func TestDeriveIncidentQuestionSkipsEmptyValues(t *testing.T) {
	payload := map[string]any{
		"question":    "   ",
		"description": "real description",
	}

	if got := DeriveIncidentQuestion(payload); got != "real description" {
		t.Fatalf("expected blank values to be skipped, got %q", got)
	}
}

func TestDeriveIncidentQuestionFallbackSerializesPayload(t *testing.T) {
	payload := map[string]any{"severity": "P1", "service": "payments"}

	got := DeriveIncidentQuestion(payload)
	if !strings.HasPrefix(got, "Please investigate the following incident.\n") {
		t.Fatalf("expected synthesized question, got %q", got)
	}
	if !strings.Contains(got, `"service":"payments"`) {
		t.Fatalf("expected serialized payload, got %q", got)
	}
}

func TestDeriveIncidentQuestionFallbackIsCapped(t *testing.T) {
	payload := map[string]any{"blob": strings.Repeat("x", 3*incidentSummaryCap)}

	got := DeriveIncidentQuestion(payload)
	summary := strings.TrimPrefix(got, "Please investigate the following incident.\n")
	if len(summary) > incidentSummaryCap {
		t.Fatalf("expected capped summary, got %d bytes", len(summary))
	}
}
