package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// FeedbackMarker is the literal prefix the confirm.py hook prepends to a
// denial reason before writing it back to the agent as a tool result,
// matching the approval package's wire contract for recognizing feedback
// text inside an otherwise ordinary tool response.
const FeedbackMarker = "User feedback: "

// confirmHookScript is the Python hook Claude invokes via PreToolUse. It
// polls the backend for a decision on the pending call_id and exits 0
// with an approval payload, or with a denial payload carrying
// FeedbackMarker-prefixed text pulled from the approval's reason.
const confirmHookScript = `#!/usr/bin/env python3
import argparse
import json
import sys
import time
import urllib.request
import urllib.error


def poll_decision(backend_port, call_id, poll_interval, deadline):
    url = f"http://127.0.0.1:{backend_port}/internal/approvals/{call_id}"
    while time.time() < deadline:
        try:
            with urllib.request.urlopen(url, timeout=poll_interval) as resp:
                body = json.loads(resp.read().decode("utf-8"))
                if body.get("status") not in ("awaiting_user",):
                    return body
        except (urllib.error.URLError, TimeoutError, ValueError):
            pass
        time.sleep(poll_interval)
    return {"status": "timed_out"}


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--timeout-seconds", type=float, required=True)
    parser.add_argument("--poll-interval", type=float, required=True)
    parser.add_argument("--backend-port", type=int, required=True)
    parser.add_argument("--feedback-marker", type=str, required=True)
    args = parser.parse_args()

    payload = json.load(sys.stdin)
    call_id = payload.get("tool_use_id") or payload.get("call_id") or ""

    deadline = time.time() + args.timeout_seconds
    decision = poll_decision(args.backend_port, call_id, args.poll_interval, deadline)
    status = decision.get("status", "timed_out")

    if status in ("approved", "approved_for_session"):
        print(json.dumps({"decision": "approve"}))
        sys.exit(0)

    reason = decision.get("reason") or "denied"
    print(json.dumps({
        "decision": "block",
        "reason": f"{args.feedback_marker}{reason}",
    }))
    sys.exit(0)


if __name__ == "__main__":
    main()
`

// WriteClaudeHooks materializes .claude/hooks/confirm.py under dir
// (a task's working directory), chmods it executable on Unix, and writes
// a .gitignore next to it so the generated hook and ignore file don't
// leak into the task's own commits.
func WriteClaudeHooks(dir string) (string, error) {
	hooksDir := filepath.Join(dir, ".claude", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return "", fmt.Errorf("executor: create hooks dir: %w", err)
	}

	hookPath := filepath.Join(hooksDir, "confirm.py")
	if err := os.WriteFile(hookPath, []byte(confirmHookScript), 0o644); err != nil {
		return "", fmt.Errorf("executor: write confirm.py: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(hookPath, 0o755); err != nil {
			return "", fmt.Errorf("executor: chmod confirm.py: %w", err)
		}
	}

	gitignorePath := filepath.Join(hooksDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte("confirm.py\n.gitignore\n"), 0o644); err != nil {
			return "", fmt.Errorf("executor: write hooks .gitignore: %w", err)
		}
	}

	return hookPath, nil
}

// HookMatcher selects the PreToolUse regex for plan mode (ExitPlanMode
// only) versus the default run (every tool except the read-only ones a
// plan doesn't need to gate).
func HookMatcher(planMode bool) string {
	if planMode {
		return "^ExitPlanMode$"
	}
	return `^(?!(Glob|Grep|NotebookRead|Read|Task|TodoWrite)$).*`
}

// SettingsJSON renders the PreToolUse hooks payload Claude reads from its
// --settings flag (or a settings.json dropped into .claude/), wiring
// confirm.py with the backend port, marker, and timeout the running
// approval service uses.
func SettingsJSON(planMode bool, backendPort int, approvalTimeoutSeconds int) (string, error) {
	backendTimeout := approvalTimeoutSeconds + 5
	command := fmt.Sprintf(
		"$CLAUDE_PROJECT_DIR/.claude/hooks/confirm.py --timeout-seconds %d --poll-interval 5 --backend-port %d --feedback-marker %q",
		backendTimeout, backendPort, FeedbackMarker,
	)

	settings := map[string]any{
		"hooks": map[string]any{
			"PreToolUse": []map[string]any{
				{
					"matcher": HookMatcher(planMode),
					"hooks": []map[string]any{
						{
							"type":    "command",
							"command": command,
							"timeout": backendTimeout + 10,
						},
					},
				},
			},
		},
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("executor: marshal settings.json: %w", err)
	}
	return string(raw), nil
}
