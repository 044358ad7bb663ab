package claude

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/convengine/engine/internal/approval"
	"github.com/convengine/engine/internal/entries"
	"github.com/convengine/engine/internal/patch"
	"github.com/convengine/engine/internal/store"
)

// pendingTool tracks a tool_use block awaiting its paired tool_result.
type pendingTool struct {
	index    int
	toolName string
	isBash   bool
	command  string
}

// blockState tracks one in-flight streaming content block.
type blockState struct {
	kind    string // "text" | "thinking"
	index   int
	started bool
	buf     strings.Builder
}

// Normalizer decodes the Claude-family newline-delimited JSON protocol
// into canonical entry patches.
type Normalizer struct {
	Worktree string
	Log      *slog.Logger

	index *store.EntryIndexProvider
	sink  *store.Store

	sessionSeen    bool
	unmanagedWarned bool
	modelAnnounced bool

	toolMap map[string]*pendingTool
	blocks  map[int]*blockState

	firstUserMessageSeen bool
}

// New builds a Claude-family normalizer writing patches into sink via idx.
func New(idx *store.EntryIndexProvider, sink *store.Store, worktree string, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{
		Worktree: worktree,
		Log:      log,
		index:    idx,
		sink:     sink,
		toolMap:  make(map[string]*pendingTool),
		blocks:   make(map[int]*blockState),
	}
}

// FeedLine decodes and processes a single newline-delimited JSON record.
func (n *Normalizer) FeedLine(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	var line Line
	if err := json.Unmarshal([]byte(raw), &line); err != nil {
		n.sink.PushPatch(patch.Add(n.index.Next(), entries.NewSystemMessage("unrecognized transport line: "+raw)))
		return
	}

	switch line.Type {
	case "system":
		n.handleSystem(line)
	case "assistant":
		n.handleAssistant(line)
	case "user":
		n.handleUser(line)
	case "stream_event":
		n.handleStreamEvent(line)
	case "result":
		if line.IsError {
			n.sink.PushPatch(patch.Add(n.index.Next(), entries.NewErrorMessage(line.Result)))
		}
	case "tool_use", "tool_result":
		// Surfaced only nested inside assistant/user message content in
		// this protocol; a bare top-level record of this type is unused.
	default:
		n.Log.Debug("claude: unrecognized record type", "type", line.Type)
	}
}

func (n *Normalizer) handleSystem(line Line) {
	n.maybeBroadcastSession(line.SessionID)
	if !n.unmanagedWarned && line.APIKeySource == "ANTHROPIC_API_KEY" {
		n.unmanagedWarned = true
		n.sink.PushPatch(patch.Add(n.index.Next(), entries.NewErrorMessage(
			"Claude Code + ANTHROPIC_API_KEY detected. Usage will be billed via Anthropic pay-as-you-go instead of your Claude subscription.")))
	}
}

func (n *Normalizer) maybeBroadcastSession(id string) {
	if id == "" || n.sessionSeen {
		return
	}
	n.sessionSeen = true
	n.sink.PushSessionID(id)
}

func (n *Normalizer) handleAssistant(line Line) {
	if line.Message == nil {
		return
	}
	n.maybeBroadcastSession(line.SessionID)

	if !n.modelAnnounced && line.Message.Model != "" {
		n.modelAnnounced = true
		n.sink.PushPatch(patch.Add(n.index.Next(), entries.NewSystemMessage(
			"System initialized with model: "+line.Message.Model)))
	}

	for _, block := range line.Message.Content {
		switch block.Type {
		case "text":
			n.sink.PushPatch(patch.Add(n.index.Next(), entries.NewAssistantMessage(block.Text)))
		case "thinking":
			n.sink.PushPatch(patch.Add(n.index.Next(), entries.NewThinking(block.Text)))
		case "tool_use":
			action, content := extractAction(n.Worktree, block.Name, block.Input)
			idx := n.index.Next()
			entry := entries.NewToolUse(block.Name, content, action)
			n.sink.PushPatch(patch.Add(idx, entry))

			pt := &pendingTool{index: idx, toolName: block.Name}
			if block.Name == "Bash" {
				pt.isBash = true
				var in struct {
					Command string `json:"command"`
				}
				_ = json.Unmarshal(block.Input, &in)
				pt.command = in.Command
			}
			n.toolMap[block.ID] = pt
		case "tool_result":
			// Paired via the user-record carrier; ignored here.
		}
	}
}

func (n *Normalizer) handleUser(line Line) {
	if line.Message == nil {
		return
	}
	n.maybeBroadcastSession(line.SessionID)

	if !n.firstUserMessageSeen {
		n.firstUserMessageSeen = true
		if n.hasText(line.Message) {
			n.ampResumeReset()
		}
	}

	for _, block := range line.Message.Content {
		if block.Type != "tool_result" {
			continue
		}
		n.handleToolResult(block)
	}
}

func (n *Normalizer) hasText(m *Message) bool {
	for _, b := range m.Content {
		if b.Type == "text" && b.Text != "" {
			return true
		}
	}
	return false
}

// ampResumeReset implements the AmpResume history strategy: when the
// first user message of a resumed stream carries text, the prior history
// is erased so the resumed conversation restarts its canonical stream.
func (n *Normalizer) ampResumeReset() {
	history := n.sink.GetHistory()
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if r.Kind == store.RecordPatch && r.Patch != nil && r.Patch.Op == patch.OpAdd {
			n.sink.PushPatch(patch.Remove(r.Patch.Index))
		}
	}
	n.index.Reset()
	n.toolMap = make(map[string]*pendingTool)
}

func (n *Normalizer) handleToolResult(block ContentBlock) {
	pt, ok := n.toolMap[block.ToolUseID]
	if !ok {
		n.Log.Warn("claude: orphan tool-result", "tool_use_id", block.ToolUseID)
		return
	}

	content := toolResultString(block.Content)

	if pt.isBash {
		result := parseBashResult(content, block.IsError)
		action := entries.NewCommandRunAction(pt.command, result)
		status := entries.StatusSuccess
		if block.IsError {
			status = entries.StatusFailed
		}
		entry := entries.NewToolUse(pt.toolName, fmt.Sprintf("`%s`", pt.command), action).WithStatus(status)
		n.sink.PushPatch(patch.Replace(pt.index, entry))
	} else {
		value := entries.InferToolResultValue(content)
		var args any
		action := entries.NewToolAction(pt.toolName, args, &value)
		status := entries.StatusSuccess
		if block.IsError {
			status = entries.StatusFailed
		}
		entry := entries.NewToolUse(pt.toolName, content, action).WithStatus(status)
		n.sink.PushPatch(patch.Replace(pt.index, entry))
	}

	if block.IsError {
		if idx := strings.Index(content, approval.FeedbackMarker); idx >= 0 {
			reason := content[idx+len(approval.FeedbackMarker):]
			n.sink.PushPatch(patch.Add(n.index.Next(), entries.NewUserFeedback(pt.toolName, reason)))
		}
	}

	delete(n.toolMap, block.ToolUseID)
}

func parseBashResult(content string, isError bool) *entries.CommandRunResult {
	var amp struct {
		Output   string `json:"output"`
		ExitCode int    `json:"exitCode"`
	}
	if err := json.Unmarshal([]byte(content), &amp); err == nil && amp.Output != "" {
		success := amp.ExitCode == 0
		return &entries.CommandRunResult{
			ExitStatus: &entries.ExitStatus{Code: &amp.ExitCode, Success: &success},
			Output:     &amp.Output,
		}
	}
	success := !isError
	out := content
	return &entries.CommandRunResult{
		ExitStatus: &entries.ExitStatus{Success: &success},
		Output:     &out,
	}
}

func (n *Normalizer) handleStreamEvent(line Line) {
	if line.Event == nil {
		return
	}
	ev := line.Event
	switch ev.Type {
	case "message_start":
		// Nothing to allocate yet; entries are allocated lazily per block
		// on first delta so an empty stream costs no index.
	case "content_block_start":
		if ev.ContentBlock == nil {
			return
		}
		kind := ev.ContentBlock.Type
		if kind != "text" && kind != "thinking" {
			return
		}
		n.blocks[ev.Index] = &blockState{kind: kind}
	case "content_block_delta":
		n.applyDelta(ev)
	case "content_block_stop":
		// No-op: content is already coherent from the last delta.
	case "message_delta", "message_stop":
		for idx := range n.blocks {
			delete(n.blocks, idx)
		}
	}
}

func (n *Normalizer) applyDelta(ev *StreamEvent) {
	b, ok := n.blocks[ev.Index]
	if !ok || ev.Delta == nil {
		n.Log.Warn("claude: delta for unannounced block", "index", ev.Index)
		return
	}

	var text string
	switch b.kind {
	case "text":
		if ev.Delta.Type != "text_delta" && ev.Delta.Text == "" {
			return
		}
		text = ev.Delta.Text
	case "thinking":
		if ev.Delta.Type != "thinking_delta" && ev.Delta.Thinking == "" {
			return
		}
		text = ev.Delta.Thinking
	default:
		n.Log.Warn("claude: mismatched delta kind for block", "index", ev.Index, "block_kind", b.kind)
		return
	}

	b.buf.WriteString(text)

	var entry entries.Entry
	if b.kind == "text" {
		entry = entries.NewAssistantMessage(b.buf.String())
	} else {
		entry = entries.NewThinking(b.buf.String())
	}

	if !b.started {
		b.started = true
		b.index = n.index.Next()
		n.sink.PushPatch(patch.Add(b.index, entry))
	} else {
		n.sink.PushPatch(patch.Replace(b.index, entry))
	}
}
