package codex

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/convengine/engine/internal/entries"
	"github.com/convengine/engine/internal/patch"
	"github.com/convengine/engine/internal/store"
)

// streamState is the single active AgentMessage/AgentReasoning stream.
// The two kinds are mutually exclusive: starting one seals the other.
type streamState struct {
	kind    string // "message" | "reasoning"
	index   int
	started bool
	buf     strings.Builder
}

// Normalizer translates codex/event/* notifications into canonical entry
// patches. It holds no opinion on the approval wire protocol itself
// (that lives in internal/codexrpc); it only reflects approval lifecycle
// into the entry stream (awaiting_approval flags, preview patches).
type Normalizer struct {
	Log *slog.Logger

	index *store.EntryIndexProvider
	sink  *store.Store

	sessionSeen bool

	stream *streamState

	commands    map[string]*commandState
	mcpTools    map[string]*mcpToolState
	patches     map[string]*patchState
	webSearches map[string]*webSearchState

	tokens tokenUsage

	// OnTurnAborted is invoked (if set) when a turn_aborted event arrives,
	// so the executor driver can flush the pending-feedback queue.
	OnTurnAborted func()
}

// New builds a Codex-family normalizer.
func New(idx *store.EntryIndexProvider, sink *store.Store, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{
		Log:         log,
		index:       idx,
		sink:        sink,
		commands:    make(map[string]*commandState),
		mcpTools:    make(map[string]*mcpToolState),
		patches:     make(map[string]*patchState),
		webSearches: make(map[string]*webSearchState),
	}
}

// HandleEvent dispatches one decoded EventMsg.
func (n *Normalizer) HandleEvent(ev EventMsg) {
	switch ev.Type {
	case EvSessionConfigured:
		n.handleSessionConfigured(ev)
	case EvAgentMessageDelta:
		n.handleDelta("message", ev.Delta)
	case EvAgentReasoningDelta:
		n.handleDelta("reasoning", ev.Delta)
	case EvAgentMessage:
		n.handleFinal("message", ev.Text)
	case EvAgentReasoning:
		n.handleFinal("reasoning", ev.Text)
	case EvAgentReasoningSectionBreak:
		n.stream = nil
	case EvExecApprovalRequest:
		n.handleExecApprovalRequest(ev)
	case EvApplyPatchApprovalRequest:
		n.handleApplyPatchApprovalRequest(ev)
	case EvExecCommandBegin:
		n.handleExecCommandBegin(ev)
	case EvExecCommandOutputDelta:
		n.handleExecCommandOutputDelta(ev)
	case EvExecCommandEnd:
		n.handleExecCommandEnd(ev)
	case EvMcpToolCallBegin:
		n.handleMcpToolCallBegin(ev)
	case EvMcpToolCallEnd:
		n.handleMcpToolCallEnd(ev)
	case EvPatchApplyBegin:
		n.handlePatchApplyBegin(ev)
	case EvPatchApplyEnd:
		n.handlePatchApplyEnd(ev)
	case EvWebSearchBegin:
		n.handleWebSearchBegin(ev)
	case EvWebSearchEnd:
		n.handleWebSearchEnd(ev)
	case EvViewImageToolCall:
		n.handleViewImage(ev)
	case EvPlanUpdate:
		n.handlePlanUpdate(ev)
	case EvBackgroundEvent:
		n.add(entries.NewSystemMessage(ev.Message))
	case EvStreamError, EvError:
		n.add(entries.NewErrorMessage(ev.Message))
	case EvTokenCount:
		n.tokens.InputTokens += ev.InputTokens
		n.tokens.OutputTokens += ev.OutputTokens
	case EvTurnAborted:
		if n.OnTurnAborted != nil {
			n.OnTurnAborted()
		}
	case EvTaskComplete, EvShutdownComplete:
		// Terminal, no entry.
	case EvRawResponseItem, EvMcpListToolsResponse, EvGetHistoryEntryResponse,
		EvListCustomPromptsResponse, EvTaskStarted, EvUserMessage, EvTurnDiff,
		EvEnteredReviewMode, EvExitedReviewMode, EvUndoStarted, EvUndoCompleted,
		EvAgentReasoningRawContent, EvAgentReasoningRawContentDelta:
		// Deliberately not normalized into an entry; see parity list.
	default:
		n.Log.Debug("codex: unrecognized event", "type", ev.Type)
	}
}

func (n *Normalizer) add(e entries.Entry) int {
	idx := n.index.Next()
	n.sink.PushPatch(patch.Add(idx, e))
	return idx
}

func (n *Normalizer) replace(idx int, e entries.Entry) {
	n.sink.PushPatch(patch.Replace(idx, e))
}

func (n *Normalizer) handleSessionConfigured(ev EventMsg) {
	if !n.sessionSeen && ev.SessionID != "" {
		n.sessionSeen = true
		n.sink.PushSessionID(ev.SessionID)
	}
	if ev.Model != "" {
		n.add(entries.NewSystemMessage("model: " + ev.Model + "  reasoning effort: " + ev.ReasoningEffort))
	}
}

func (n *Normalizer) handleDelta(kind, delta string) {
	if n.stream != nil && n.stream.kind != kind {
		n.stream = nil
	}
	if n.stream == nil {
		n.stream = &streamState{kind: kind}
	}
	n.stream.buf.WriteString(delta)

	var e entries.Entry
	if kind == "message" {
		e = entries.NewAssistantMessage(n.stream.buf.String())
	} else {
		e = entries.NewThinking(n.stream.buf.String())
	}

	if !n.stream.started {
		n.stream.started = true
		n.stream.index = n.add(e)
	} else {
		n.replace(n.stream.index, e)
	}
}

func (n *Normalizer) handleFinal(kind, text string) {
	var e entries.Entry
	if kind == "message" {
		e = entries.NewAssistantMessage(text)
	} else {
		e = entries.NewThinking(text)
	}

	if n.stream != nil && n.stream.kind == kind && n.stream.started {
		n.replace(n.stream.index, e)
	} else {
		n.add(e)
	}
	n.stream = nil
}
