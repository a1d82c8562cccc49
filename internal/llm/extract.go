package llm

import (
	"fmt"
	"strings"
)

// ExtractText recovers the assistant's plain text from a model response.
// Responses arrive in several shapes depending on backend version: a typed
// Response, a raw map mirroring one, or something else entirely. Precedence,
// first match wins:
//
//  1. output items scanned in reverse; first "message" item with content,
//     first non-empty text within it
//  2. non-empty top-level output_text
//  3. a map mirror of shape 1
//  4. string conversion of the whole value
//
// A shape that does not match is skipped, never an error; the empty string is
// a valid result and the caller decides whether that is fatal.
func ExtractText(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case *Response:
		if v == nil {
			return ""
		}
		return extractResponseText(*v)
	case Response:
		return extractResponseText(v)
	case map[string]any:
		if text := scanOutputMaps(v["output"]); text != "" {
			return text
		}
	}
	return fmt.Sprint(result)
}

func extractResponseText(response Response) string {
	for i := len(response.Output) - 1; i >= 0; i-- {
		item := response.Output[i]
		if item.Type != "message" || len(item.Content) == 0 {
			continue
		}
		for _, part := range item.Content {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	if response.OutputText != "" {
		return response.OutputText
	}
	return ""
}

// scanOutputMaps applies the reverse message scan to a decoded-JSON output
// list ([]any of map[string]any).
func scanOutputMaps(output any) string {
	items, ok := output.([]any)
	if !ok {
		return ""
	}
	for i := len(items) - 1; i >= 0; i-- {
		item, ok := items[i].(map[string]any)
		if !ok || item["type"] != "message" {
			continue
		}
		parts, ok := item["content"].([]any)
		if !ok {
			continue
		}
		for _, raw := range parts {
			part, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok && text != "" {
				return text
			}
		}
	}
	return ""
}

// ExtractTurnText is the session-turn variant. Turn payloads prefer a flat
// output_text, then the responses shape with the text parts joined, then a
// top-level text field. Anything unrecognized falls through to ExtractText.
func ExtractTurnText(result any) string {
	switch v := result.(type) {
	case *TurnResult:
		if v == nil {
			return ""
		}
		if text := extractTurnText(*v); text != "" {
			return text
		}
	case TurnResult:
		if text := extractTurnText(v); text != "" {
			return text
		}
	case map[string]any:
		if text := extractTurnMap(v); text != "" {
			return text
		}
	}
	return ExtractText(result)
}

func extractTurnText(turn TurnResult) string {
	if strings.TrimSpace(turn.OutputText) != "" {
		return turn.OutputText
	}
	var pieces []string
	for _, item := range turn.Output {
		for _, part := range item.Content {
			if (part.Type == "output_text" || part.Type == "text") && part.Text != "" {
				pieces = append(pieces, part.Text)
			}
		}
	}
	if len(pieces) > 0 {
		return strings.Join(pieces, "\n")
	}
	if strings.TrimSpace(turn.Text) != "" {
		return turn.Text
	}
	return ""
}

func extractTurnMap(turn map[string]any) string {
	if text, ok := turn["output_text"].(string); ok && strings.TrimSpace(text) != "" {
		return text
	}
	var pieces []string
	if items, ok := turn["output"].([]any); ok {
		for _, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			parts, ok := item["content"].([]any)
			if !ok {
				continue
			}
			for _, rawPart := range parts {
				part, ok := rawPart.(map[string]any)
				if !ok {
					continue
				}
				partType, _ := part["type"].(string)
				if partType != "output_text" && partType != "text" {
					continue
				}
				if text, ok := part["text"].(string); ok && text != "" {
					pieces = append(pieces, text)
				}
			}
		}
	}
	if len(pieces) > 0 {
		return strings.Join(pieces, "\n")
	}
	if text, ok := turn["text"].(string); ok && strings.TrimSpace(text) != "" {
		return text
	}
	return ""
}
