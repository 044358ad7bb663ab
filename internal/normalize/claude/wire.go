package claude

import "encoding/json"

// Line is the outer tagged-union envelope of one newline-delimited JSON
// record from the Claude CLI's --output-format stream-json protocol.
type Line struct {
	Type string `json:"type"`

	// system
	Subtype      string `json:"subtype,omitempty"`
	APIKeySource string `json:"apiKeySource,omitempty"`
	SessionID    string `json:"session_id,omitempty"`

	// assistant / user
	Message *Message `json:"message,omitempty"`

	// stream_event
	Event *StreamEvent `json:"event,omitempty"`

	// result
	Result string `json:"result,omitempty"`
	IsError bool  `json:"is_error,omitempty"`
}

// Message is the Anthropic-Messages-API-shaped payload carried by
// assistant/user records.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Model   string          `json:"model,omitempty"`
	Role    string          `json:"role,omitempty"`
	Content []ContentBlock  `json:"content,omitempty"`
}

// ContentBlock is one of text / thinking / tool_use / tool_result.
type ContentBlock struct {
	Type string `json:"type"`

	// text / thinking
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// StreamEvent is the payload of a stream_event record, itself a tagged
// union on Type.
type StreamEvent struct {
	Type string `json:"type"`

	Message *Message `json:"message,omitempty"`

	Index int `json:"index,omitempty"`

	ContentBlock *ContentBlock `json:"content_block,omitempty"`

	Delta *ContentDelta `json:"delta,omitempty"`
}

// ContentDelta is message_delta / content_block_delta's payload.
type ContentDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// toolResultString renders a tool_result content block's raw JSON as the
// string form the inference rule expects: a bare JSON string unwraps to
// its value, an array of {text} blocks joins on blank lines, anything
// else serializes back to its compact JSON text.
func toolResultString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		texts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if b.Text != "" {
				texts = append(texts, b.Text)
			}
		}
		if len(texts) > 0 {
			out := texts[0]
			for _, t := range texts[1:] {
				out += "\n\n" + t
			}
			return out
		}
	}

	return string(raw)
}
