// Package codex implements the C7 Codex-family normalizer: a per-call_id
// state machine translating codex/event/* notifications (EventMsg
// variants) into canonical entry patches, wired to the approval protocol
// for the bidirectional exec/apply_patch approval round trip.
package codex

import "encoding/json"

// EventMsg is the tagged union of codex/event/* notification payloads
// this normalizer understands. Type selects which of the typed fields is
// populated; fields the event doesn't carry are left zero.
type EventMsg struct {
	Type string `json:"type"`

	// SessionConfigured
	SessionID       string `json:"sessionId,omitempty"`
	Model           string `json:"model,omitempty"`
	ReasoningEffort string `json:"reasoningEffort,omitempty"`

	// AgentMessageDelta / AgentReasoningDelta / AgentMessage / AgentReasoning
	Delta string `json:"delta,omitempty"`
	Text  string `json:"text,omitempty"`

	// ExecApprovalRequest / ExecCommandBegin / ExecCommandOutputDelta / ExecCommandEnd
	CallID   string `json:"callId,omitempty"`
	Command  string `json:"command,omitempty"`
	Chunk    string `json:"chunk,omitempty"`
	Stream   string `json:"stream,omitempty"` // "stdout" | "stderr"
	ExitCode *int   `json:"exitCode,omitempty"`

	// ApplyPatchApprovalRequest / PatchApplyBegin / PatchApplyEnd
	Patches []PatchFile `json:"patches,omitempty"`
	Success *bool       `json:"success,omitempty"`

	// McpToolCallBegin / McpToolCallEnd
	Server            string          `json:"server,omitempty"`
	Tool              string          `json:"tool,omitempty"`
	Arguments         json.RawMessage `json:"arguments,omitempty"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	ContentBlocks     []MCPContentBlock `json:"content,omitempty"`
	IsError           bool            `json:"isError,omitempty"`

	// WebSearchBegin / WebSearchEnd
	Query string `json:"query,omitempty"`

	// ViewImageToolCall
	Path string `json:"path,omitempty"`

	// PlanUpdate
	Explanation string     `json:"explanation,omitempty"`
	Plan        []PlanItem `json:"plan,omitempty"`

	// BackgroundEvent / StreamError / Error
	Message string `json:"message,omitempty"`

	// TokenCount
	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`
}

// PatchFile is one file entry inside an apply_patch approval/begin/end
// event.
type PatchFile struct {
	Path       string `json:"path"`
	Kind       string `json:"kind"` // "add" | "delete" | "update"
	UnifiedDiff string `json:"unifiedDiff,omitempty"`
	MovePath   string `json:"movePath,omitempty"`
}

// MCPContentBlock is one block of an MCP tool result.
type MCPContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// PlanItem is one row of a PlanUpdate todo list.
type PlanItem struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

// Event type name constants, matching the codex/event/* method suffix.
const (
	EvSessionConfigured          = "session_configured"
	EvAgentMessageDelta          = "agent_message_delta"
	EvAgentReasoningDelta        = "agent_reasoning_delta"
	EvAgentMessage               = "agent_message"
	EvAgentReasoning             = "agent_reasoning"
	EvAgentReasoningSectionBreak = "agent_reasoning_section_break"
	EvExecApprovalRequest        = "exec_approval_request"
	EvApplyPatchApprovalRequest  = "apply_patch_approval_request"
	EvExecCommandBegin           = "exec_command_begin"
	EvExecCommandOutputDelta     = "exec_command_output_delta"
	EvExecCommandEnd             = "exec_command_end"
	EvMcpToolCallBegin           = "mcp_tool_call_begin"
	EvMcpToolCallEnd             = "mcp_tool_call_end"
	EvPatchApplyBegin            = "patch_apply_begin"
	EvPatchApplyEnd              = "patch_apply_end"
	EvWebSearchBegin             = "web_search_begin"
	EvWebSearchEnd               = "web_search_end"
	EvViewImageToolCall          = "view_image_tool_call"
	EvPlanUpdate                 = "plan_update"
	EvBackgroundEvent            = "background_event"
	EvStreamError                = "stream_error"
	EvError                      = "error"
	EvTokenCount                 = "token_count"
	EvTaskComplete               = "task_complete"
	EvShutdownComplete           = "shutdown_complete"
	EvTurnAborted                = "turn_aborted"

	// Event variants the upstream protocol emits that this normalizer
	// deliberately does not translate into entries. Named explicitly
	// (rather than left to fall through the default case) so the parity
	// with the full upstream event enum is visible to a reader.
	EvRawResponseItem           = "raw_response_item"
	EvMcpListToolsResponse      = "mcp_list_tools_response"
	EvGetHistoryEntryResponse   = "get_history_entry_response"
	EvListCustomPromptsResponse = "list_custom_prompts_response"
	EvTaskStarted               = "task_started"
	EvUserMessage               = "user_message"
	EvTurnDiff                  = "turn_diff"
	EvEnteredReviewMode         = "entered_review_mode"
	EvExitedReviewMode          = "exited_review_mode"
	EvUndoStarted               = "undo_started"
	EvUndoCompleted             = "undo_completed"
	EvAgentReasoningRawContent  = "agent_reasoning_raw_content"
	EvAgentReasoningRawContentDelta = "agent_reasoning_raw_content_delta"
)
