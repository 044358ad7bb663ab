// Package executor implements the per-agent front end (C8): building an
// invocation from structured options, spawning the child process with
// piped stdio, wiring its output into the message store and the matching
// normalizer, and handling the two agent-specific onboarding paths (Claude
// hook-script injection, Copilot log-directory session discovery).
package executor

import (
	"fmt"

	"github.com/convengine/engine/internal/approval"
	execsafety "github.com/convengine/engine/internal/exec"
)

// Family discriminates which wire protocol and onboarding path an agent
// speaks, selecting both BuildInvocation's flag set and the normalizer the
// driver wires to the spawned child's stdout.
type Family string

const (
	FamilyClaude   Family = "claude"
	FamilyCodex    Family = "codex"
	FamilyCopilot  Family = "copilot"
	FamilyFreeform Family = "freeform"
)

// CmdOverrides lets a caller replace the base command and/or append extra
// parameters, mirroring the original's CmdOverrides/apply_overrides escape
// hatch for callers who need a non-default binary or wrapper.
type CmdOverrides struct {
	BaseCommand string
	ExtraArgs   []string
}

// Options describes one agent invocation: what to run, where, and with
// which capabilities. Prompt is never placed on the command line; it is
// written to the child's stdin and the pipe is closed, matching the
// external interface's stdin-prompt contract.
type Options struct {
	Family Family

	Model          string
	PermissionMode string // e.g. "default" | "plan" | "approvals" | "bypassPermissions"
	AdditionalDirs []string
	AllowAllTools  bool
	AllowTool      string
	DenyTool       string
	WorkingDir     string
	Prompt         string
	SessionID      string // set for a follow-up/resume invocation

	Overrides CmdOverrides

	// Approvals answers exec/apply_patch approval requests for families
	// that route through the codexrpc JSON-RPC peer. Left nil for
	// families (Claude, Copilot) that answer approvals out of band via
	// the confirm.py hook talking to a separate backend endpoint.
	Approvals   approval.Service
	AutoApprove bool
}

// BuildInvocation renders Options into a safe (command, args) pair for the
// named family. Every argument passes through internal/exec's shell-
// metacharacter validation before being returned, so a malicious prompt or
// directory name cannot smuggle an extra flag or shell operator onto the
// child's argv.
func BuildInvocation(opts Options) (string, []string, error) {
	command := defaultBaseCommand(opts.Family)
	if opts.Overrides.BaseCommand != "" {
		command = opts.Overrides.BaseCommand
	}
	if _, err := execsafety.SanitizeExecutableValue(command); err != nil {
		return "", nil, fmt.Errorf("executor: unsafe base command %q: %w", command, err)
	}

	var args []string
	switch opts.Family {
	case FamilyClaude:
		args = buildClaudeArgs(opts)
	case FamilyCodex:
		args = buildCodexArgs(opts)
	case FamilyCopilot:
		args = buildCopilotArgs(opts)
	case FamilyFreeform:
		// No family-specific flags; the caller's overrides carry everything.
	default:
		return "", nil, fmt.Errorf("executor: unknown agent family %q", opts.Family)
	}

	args = append(args, opts.Overrides.ExtraArgs...)

	safe, err := execsafety.SanitizeArguments(args)
	if err != nil {
		return "", nil, fmt.Errorf("executor: unsafe argument: %w", err)
	}
	return command, safe, nil
}

func defaultBaseCommand(f Family) string {
	switch f {
	case FamilyClaude:
		return "claude"
	case FamilyCodex:
		return "codex"
	case FamilyCopilot:
		return "copilot"
	default:
		return "agent"
	}
}

func buildClaudeArgs(opts Options) []string {
	args := []string{"--output-format", "stream-json", "--verbose", "-p"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	for _, dir := range opts.AdditionalDirs {
		args = append(args, "--add-dir", dir)
	}
	if opts.SessionID != "" {
		args = append(args, "--resume", opts.SessionID)
	}
	return args
}

func buildCodexArgs(opts Options) []string {
	args := []string{"app-server"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	for _, dir := range opts.AdditionalDirs {
		args = append(args, "--add-dir", dir)
	}
	return args
}

func buildCopilotArgs(opts Options) []string {
	args := []string{"--no-color", "--log-level", "debug"}
	if opts.AllowAllTools {
		args = append(args, "--allow-all-tools")
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.AllowTool != "" {
		args = append(args, "--allow-tool", opts.AllowTool)
	}
	if opts.DenyTool != "" {
		args = append(args, "--deny-tool", opts.DenyTool)
	}
	for _, dir := range opts.AdditionalDirs {
		args = append(args, "--add-dir", dir)
	}
	if opts.SessionID != "" {
		args = append(args, "--resume", opts.SessionID)
	}
	return args
}
