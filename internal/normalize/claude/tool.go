package claude

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/convengine/engine/internal/entries"
)

// extractAction maps a tool_use block's name + input onto the action
// taxonomy and a one-line human-readable content string, relative to
// worktree where the tool carries a file path.
func extractAction(worktree, name string, input json.RawMessage) (entries.Action, string) {
	switch name {
	case "Read":
		var in struct {
			FilePath string `json:"file_path"`
		}
		_ = json.Unmarshal(input, &in)
		path := relativize(worktree, in.FilePath)
		return entries.NewFileReadAction(path), fmt.Sprintf("Read %s", path)

	case "Edit":
		var in struct {
			FilePath string `json:"file_path"`
			OldString string `json:"old_string"`
			NewString string `json:"new_string"`
		}
		_ = json.Unmarshal(input, &in)
		path := relativize(worktree, in.FilePath)
		diff := unifiedHunk(path, in.OldString, in.NewString)
		change := entries.NewFileChangeEdit(diff, false)
		return entries.NewFileEditAction(path, []entries.FileChange{change}), fmt.Sprintf("Edit %s", path)

	case "MultiEdit":
		var in struct {
			FilePath string `json:"file_path"`
			Edits    []struct {
				OldString string `json:"old_string"`
				NewString string `json:"new_string"`
			} `json:"edits"`
		}
		_ = json.Unmarshal(input, &in)
		path := relativize(worktree, in.FilePath)
		var diffs []string
		for _, e := range in.Edits {
			diffs = append(diffs, unifiedHunk(path, e.OldString, e.NewString))
		}
		change := entries.NewFileChangeEdit(strings.Join(diffs, "\n"), false)
		return entries.NewFileEditAction(path, []entries.FileChange{change}), fmt.Sprintf("Edit %s", path)

	case "Write":
		var in struct {
			FilePath string `json:"file_path"`
			Content  string `json:"content"`
		}
		_ = json.Unmarshal(input, &in)
		path := relativize(worktree, in.FilePath)
		change := entries.NewFileChangeWrite(in.Content)
		return entries.NewFileEditAction(path, []entries.FileChange{change}), fmt.Sprintf("Write %s", path)

	case "Bash":
		var in struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewCommandRunAction(in.Command, nil), fmt.Sprintf("`%s`", in.Command)

	case "Grep":
		var in struct {
			Pattern string `json:"pattern"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewSearchAction(in.Pattern), fmt.Sprintf("Search %q", in.Pattern)

	case "Glob":
		var in struct {
			Pattern string `json:"pattern"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewSearchAction(in.Pattern), fmt.Sprintf("Search %q", in.Pattern)

	case "WebFetch":
		var in struct {
			URL string `json:"url"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewWebFetchAction(in.URL), fmt.Sprintf("Fetch %s", in.URL)

	case "WebSearch":
		var in struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewWebFetchAction(in.Query), fmt.Sprintf("Search the web for %q", in.Query)

	case "Task":
		var in struct {
			Description string `json:"description"`
			Prompt      string `json:"prompt"`
		}
		_ = json.Unmarshal(input, &in)
		desc := in.Description
		if desc == "" {
			desc = in.Prompt
		}
		return entries.NewTaskCreateAction(desc), fmt.Sprintf("Task: %s", desc)

	case "ExitPlanMode":
		var in struct {
			Plan string `json:"plan"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewPlanPresentAction(in.Plan), "Present plan"

	case "TodoWrite":
		var in struct {
			Todos []entries.TodoItem `json:"todos"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewTodoManagementAction(in.Todos, "write"), "Update todo list"

	case "TodoRead":
		return entries.NewTodoManagementAction(nil, "read"), "Read todo list"

	case "LS":
		var in struct {
			Path string `json:"path"`
		}
		_ = json.Unmarshal(input, &in)
		return entries.NewOtherAction(fmt.Sprintf("List directory %s", in.Path)), fmt.Sprintf("List %s", in.Path)

	case "Oracle":
		return entries.NewOtherAction("Consult oracle"), "Consult oracle"

	case "Mermaid":
		return entries.NewOtherAction("Render Mermaid diagram"), "Render diagram"

	case "CodebaseSearchAgent":
		return entries.NewOtherAction("Delegate codebase search"), "Codebase search"

	case "UndoEdit":
		return entries.NewOtherAction("Undo last edit"), "Undo edit"

	default:
		if server, tool, ok := parseMCPToolName(name); ok {
			toolName := fmt.Sprintf("mcp:%s:%s", server, tool)
			var args any
			_ = json.Unmarshal(input, &args)
			return entries.NewToolAction(toolName, args, nil), fmt.Sprintf("Call %s", toolName)
		}
		var args any
		_ = json.Unmarshal(input, &args)
		return entries.NewToolAction(name, args, nil), fmt.Sprintf("Call %s", name)
	}
}

// parseMCPToolName recognizes the mcp__server__tool naming convention
// Claude uses for MCP-provided tools.
func parseMCPToolName(name string) (server, tool string, ok bool) {
	if !strings.HasPrefix(name, "mcp__") {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, "mcp__")
	parts := strings.SplitN(rest, "__", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func relativize(worktree, path string) string {
	if worktree == "" {
		return path
	}
	if rel := strings.TrimPrefix(path, worktree); rel != path {
		return strings.TrimPrefix(rel, "/")
	}
	return path
}

// unifiedHunk builds a minimal single-hunk unified diff from an old/new
// string pair; it is not a general diff algorithm, it mirrors the
// original's own "tell me what changed, don't minimize it" approach for
// tool-reported edits.
func unifiedHunk(path, oldStr, newStr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)
	for _, line := range strings.Split(oldStr, "\n") {
		b.WriteString("-" + line + "\n")
	}
	for _, line := range strings.Split(newStr, "\n") {
		b.WriteString("+" + line + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
