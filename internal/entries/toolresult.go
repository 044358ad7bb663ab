package entries

import (
	"encoding/json"
	"strings"
)

// InferToolResultValue implements the tool-result value-type inference rule
// used by the Claude-family and Codex-family normalizers when an opaque
// (non-Bash) tool's result content must be classified as Markdown or JSON
// for UI consumers.
//
// Rule (preserved exactly; UI consumers depend on it):
//   - a string that parses as JSON is JSON;
//   - a string that does not parse as JSON is Markdown;
//   - an array of {text} items is joined on blank lines, then the join is
//     tried as JSON (falls back to Markdown if it doesn't parse).
func InferToolResultValue(content string) ToolResultValue {
	if v, ok := tryParseJSON(content); ok {
		return ToolResultValue{Kind: ToolResultJSON, Value: v}
	}
	return ToolResultValue{Kind: ToolResultMarkdown, Value: content}
}

// InferToolResultFromTextBlocks joins an array of {text} content blocks on
// blank lines and applies InferToolResultValue to the join.
func InferToolResultFromTextBlocks(texts []string) ToolResultValue {
	joined := strings.Join(texts, "\n\n")
	return InferToolResultValue(joined)
}

func tryParseJSON(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, false
	}
	// Only object/array/literal-looking strings are worth attempting; this
	// keeps plain prose from round-tripping through the JSON decoder.
	switch trimmed[0] {
	case '{', '[', '"':
	default:
		if !looksLikeJSONLiteral(trimmed) {
			return nil, false
		}
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, false
	}
	return v, true
}

func looksLikeJSONLiteral(s string) bool {
	switch s {
	case "true", "false", "null":
		return true
	}
	if len(s) == 0 {
		return false
	}
	c := s[0]
	return c == '-' || (c >= '0' && c <= '9')
}
