// Package findings recovers the structured diagnosis object the correlation
// model is asked to embed in its reply. Models drift on formatting, so
// recovery is layered: an explicit marker region, then a fenced json block,
// then brace-balancing around a known key. Every failure degrades to the next
// strategy; the package never returns an error.
package findings

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/domain"
)

const (
	jsonStartMarker = "### JSON_START"
	jsonEndMarker   = "### JSON_END"
	anchorKey       = "proposed_remediation_via_aap"
)

var (
	fenceRe      = regexp.MustCompile("`{3,}[\\w-]*")
	fencedJSONRe = regexp.MustCompile("```json\\s*(\\{[\\s\\S]*?\\})\\s*```")
)

// Split separates the correlation reply into a human-readable explanation and
// the embedded findings object. Findings are nil when no strategy recovers a
// well-formed object; the explanation is then the input unchanged, except
// that a seen start marker always truncates the explanation to the text
// before it, even when the marked JSON fails to parse.
func Split(raw string) (string, domain.Findings) {
	explanation := raw

	// Structural search runs on a normalized working copy: code fences gone,
	// HTML line breaks turned back into newlines. The explanation is always
	// cut from the original text.
	normalized := fenceRe.ReplaceAllString(raw, "")
	normalized = strings.ReplaceAll(normalized, "<br/>", "\n")
	normalized = strings.ReplaceAll(normalized, "<br>", "\n")

	if markerIdx := strings.Index(raw, jsonStartMarker); markerIdx >= 0 {
		explanation = strings.TrimSpace(raw[:markerIdx])
	}

	if f, ok := tryMarkerRegion(normalized); ok {
		return explanation, f
	}
	if f, ok := tryFencedJSON(raw); ok {
		return explanation, f
	}
	if f, ok := tryAnchorKey(normalized); ok {
		return explanation, f
	}
	return explanation, nil
}

// tryMarkerRegion parses the first {...} span between the literal start and
// end markers.
func tryMarkerRegion(text string) (domain.Findings, bool) {
	start := strings.Index(text, jsonStartMarker)
	if start < 0 {
		return nil, false
	}
	rest := text[start+len(jsonStartMarker):]
	end := strings.Index(rest, jsonEndMarker)
	if end < 0 {
		return nil, false
	}
	region := rest[:end]

	open := strings.IndexByte(region, '{')
	close := strings.LastIndexByte(region, '}')
	if open < 0 || close <= open {
		return nil, false
	}
	return parseObject(region[open : close+1])
}

// tryFencedJSON parses the content of a ```json fenced block. It searches the
// original text: the normalization pass above has already stripped the fence
// markers from the working copy.
func tryFencedJSON(raw string) (domain.Findings, bool) {
	match := fencedJSONRe.FindStringSubmatch(raw)
	if match == nil {
		return nil, false
	}
	return parseObject(match[1])
}

// tryAnchorKey brace-balances around the anchor key: backward from the key to
// the nearest unmatched '{', then forward until the depth returns to zero.
func tryAnchorKey(text string) (domain.Findings, bool) {
	keyIdx := strings.Index(text, anchorKey)
	if keyIdx < 0 {
		return nil, false
	}

	// Backward scan. Depth counts closers seen on the way; the first opener
	// beyond them is the unmatched one enclosing the key.
	start := -1
	depth := 0
	for i := keyIdx; i >= 0; i-- {
		switch text[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				start = i
			} else {
				depth--
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return nil, false
	}

	// Forward scan from the opener until the object closes.
	depth = 0
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return parseObject(text[start : j+1])
			}
		}
	}
	return nil, false
}

func parseObject(candidate string) (domain.Findings, bool) {
	candidate = strings.TrimSpace(candidate)
	if !strings.HasPrefix(candidate, "{") || !strings.HasSuffix(candidate, "}") {
		return nil, false
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return nil, false
	}
	return domain.Findings(decoded), true
}
