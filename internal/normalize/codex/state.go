package codex

import "strings"

// commandState tracks one exec call from begin through end, keyed by
// call_id. Rolling stdout/stderr are kept separate so the formatted
// output can interleave them with stream labels at End time.
type commandState struct {
	index           int
	command         string
	stdout          strings.Builder
	stderr          strings.Builder
	status          string // "created" | "success" | "failed"
	exitCode        *int
	awaitingApproval bool
}

func (c *commandState) formattedOutput() string {
	var b strings.Builder
	if c.stdout.Len() > 0 {
		b.WriteString(c.stdout.String())
	}
	if c.stderr.Len() > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.stderr.String())
	}
	return b.String()
}

// mcpToolState tracks one MCP tool invocation.
type mcpToolState struct {
	index   int
	server  string
	tool    string
	args    any
	result  any
	status  string
}

// patchEntryState is one file within a patch call.
type patchEntryState struct {
	index            int
	path             string
	change           string // rendered FileChange summary, for replace bookkeeping
	status           string
	awaitingApproval bool
}

// patchState groups all patchEntryState for one call_id.
type patchState struct {
	entries []*patchEntryState
}

// webSearchState tracks one web_search call.
type webSearchState struct {
	index int
	query string
	status string
}

// tokenUsage is the running token accounting TokenCount events update;
// it produces no entry, only internal bookkeeping available to callers
// that want to surface usage in a status line elsewhere.
type tokenUsage struct {
	InputTokens  int
	OutputTokens int
}
