package codex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/convengine/engine/internal/entries"
)

func (n *Normalizer) mcpEntry(ms *mcpToolState) entries.Entry {
	toolName := fmt.Sprintf("mcp:%s:%s", ms.server, ms.tool)
	var result *entries.ToolResultValue
	if ms.result != nil {
		if v, ok := ms.result.(entries.ToolResultValue); ok {
			result = &v
		}
	}
	action := entries.NewToolAction(toolName, ms.args, result)
	e := entries.NewToolUse(toolName, "Call "+toolName, action)
	switch ms.status {
	case "success":
		e = e.WithStatus(entries.StatusSuccess)
	case "failed":
		e = e.WithStatus(entries.StatusFailed)
	default:
		e = e.WithStatus(entries.StatusCreated)
	}
	return e
}

func (n *Normalizer) handleMcpToolCallBegin(ev EventMsg) {
	var args any
	_ = json.Unmarshal(ev.Arguments, &args)
	ms := &mcpToolState{server: ev.Server, tool: ev.Tool, args: args, status: "created"}
	ms.index = n.add(n.mcpEntry(ms))
	n.mcpTools[ev.CallID] = ms
}

// inferMCPResult implements the McpToolCallEnd result-shape rule: all
// text blocks become Markdown; otherwise structured_content is preferred
// as Json; failing that, the content blocks are serialized as Json.
func inferMCPResult(ev EventMsg) entries.ToolResultValue {
	if len(ev.ContentBlocks) > 0 {
		allText := true
		var texts []string
		for _, b := range ev.ContentBlocks {
			if b.Type != "text" {
				allText = false
				break
			}
			texts = append(texts, b.Text)
		}
		if allText {
			return entries.InferToolResultFromTextBlocks(texts)
		}
	}
	if len(ev.StructuredContent) > 0 {
		var v any
		if err := json.Unmarshal(ev.StructuredContent, &v); err == nil {
			return entries.ToolResultValue{Kind: entries.ToolResultJSON, Value: v}
		}
	}
	var blocks any = ev.ContentBlocks
	return entries.ToolResultValue{Kind: entries.ToolResultJSON, Value: blocks}
}

func (n *Normalizer) handleMcpToolCallEnd(ev EventMsg) {
	ms, ok := n.mcpTools[ev.CallID]
	if !ok {
		return
	}
	if ev.IsError {
		ms.status = "failed"
		errText := "tool call failed"
		if len(ev.ContentBlocks) > 0 {
			var texts []string
			for _, b := range ev.ContentBlocks {
				texts = append(texts, b.Text)
			}
			errText = strings.Join(texts, "\n\n")
		}
		ms.result = entries.ToolResultValue{Kind: entries.ToolResultMarkdown, Value: errText}
	} else {
		ms.status = "success"
		ms.result = inferMCPResult(ev)
	}
	n.replace(ms.index, n.mcpEntry(ms))
	delete(n.mcpTools, ev.CallID)
}
