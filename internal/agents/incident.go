package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

const incidentSummaryCap = 4000

// incidentQuestionKeys are probed in priority order on JSON payloads.
var incidentQuestionKeys = []string{
	"incident_question",
	"question",
	"incident",
	"description",
	"short_description",
}

// DeriveIncidentQuestion normalizes the inbound payload into the question
// string both prompts embed. Strings are used verbatim after trimming; JSON
// objects are probed for a description-like key; anything else falls back to
// a capped serialization of the whole payload.
func DeriveIncidentQuestion(payload any) string {
	switch v := payload.(type) {
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	case map[string]any:
		for _, key := range incidentQuestionKeys {
			if text, ok := v[key].(string); ok {
				if trimmed := strings.TrimSpace(text); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return "Please investigate the following incident.\n" + summarizeIncidentPayload(payload)
}

func summarizeIncidentPayload(payload any) string {
	encoded, err := json.Marshal(payload)
	summary := ""
	if err != nil {
		summary = fmt.Sprint(payload)
	} else {
		summary = string(encoded)
	}
	if len(summary) > incidentSummaryCap {
		summary = summary[:incidentSummaryCap]
	}
	return summary
}
