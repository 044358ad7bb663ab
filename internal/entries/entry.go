// Package entries defines the canonical conversation entry model that every
// normalizer produces. An Entry is the unit of the patch stream: a single,
// stably-indexed, human-readable line in the normalized conversation.
package entries

import (
	"encoding/json"
	"time"
)

// Kind identifies the closed set of entry variants.
type Kind string

const (
	KindSystemMessage   Kind = "system_message"
	KindUserMessage     Kind = "user_message"
	KindUserFeedback    Kind = "user_feedback"
	KindAssistantMsg    Kind = "assistant_message"
	KindThinking        Kind = "thinking"
	KindErrorMessage    Kind = "error_message"
	KindToolUse         Kind = "tool_use"
)

// Status is the lifecycle state of a ToolUse entry.
//
// A ToolUse entry proceeds Created -> Success | Failed and never reverts.
type Status string

const (
	StatusCreated Status = "created"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry is the canonical unit all normalizers produce.
type Entry struct {
	// Timestamp is the optional wall-clock time at normalization.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Kind discriminates the entry variant.
	Kind Kind `json:"kind"`

	// Content is a human-readable one-line summary.
	Content string `json:"content"`

	// Metadata is the optional raw original payload, kept for debugging.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// DeniedTool is set only for KindUserFeedback.
	DeniedTool string `json:"denied_tool,omitempty"`

	// Tool is set only for KindToolUse.
	Tool *ToolUse `json:"tool,omitempty"`
}

// ToolUse describes a tool invocation lifecycle entry.
type ToolUse struct {
	ToolName string  `json:"tool_name"`
	Action   Action  `json:"action"`
	Status   Status  `json:"status"`
}

// Clone returns a deep-enough copy of the entry for safe mutation by
// callers that Replace an existing entry (normalizers never mutate an
// Entry already handed to the store).
func (e Entry) Clone() Entry {
	out := e
	if e.Tool != nil {
		tool := *e.Tool
		out.Tool = &tool
	}
	return out
}

// NewSystemMessage builds a SystemMessage entry.
func NewSystemMessage(content string) Entry {
	return Entry{Kind: KindSystemMessage, Content: content}
}

// NewErrorMessage builds an ErrorMessage entry.
func NewErrorMessage(content string) Entry {
	return Entry{Kind: KindErrorMessage, Content: content}
}

// NewAssistantMessage builds an AssistantMessage entry.
func NewAssistantMessage(content string) Entry {
	return Entry{Kind: KindAssistantMsg, Content: content}
}

// NewThinking builds a Thinking entry.
func NewThinking(content string) Entry {
	return Entry{Kind: KindThinking, Content: content}
}

// NewUserFeedback builds a UserFeedback entry carrying the denied tool name.
func NewUserFeedback(deniedTool, content string) Entry {
	return Entry{Kind: KindUserFeedback, DeniedTool: deniedTool, Content: content}
}

// NewToolUse builds a ToolUse entry in the Created state.
func NewToolUse(toolName, content string, action Action) Entry {
	return Entry{
		Kind:    KindToolUse,
		Content: content,
		Tool: &ToolUse{
			ToolName: toolName,
			Action:   action,
			Status:   StatusCreated,
		},
	}
}

// WithStatus returns a copy of the entry with the tool status replaced.
// Panics if called on a non-ToolUse entry, matching the invariant that only
// ToolUse entries carry a status.
func (e Entry) WithStatus(status Status) Entry {
	out := e.Clone()
	out.Tool.Status = status
	return out
}

// WithAction returns a copy of the entry with the tool action replaced,
// preserving content and status per the tool-lifecycle-monotonicity
// invariant (content is immutable after creation; only action/status mutate).
func (e Entry) WithAction(action Action) Entry {
	out := e.Clone()
	out.Tool.Action = action
	return out
}
