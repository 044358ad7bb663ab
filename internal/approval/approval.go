// Package approval implements the engine's tool-approval round trip: a
// request/response protocol between a running agent's pending tool call
// and whatever is answering on the user's behalf (a local UI, a CLI
// prompt, or an auto-approve policy), plus the wire-level decision
// mapping each agent family's RPC layer expects back.
package approval

import (
	"context"
	"log/slog"
	"time"
)

// Status is the approval state machine: AwaitingUser is the only
// non-terminal state; every other value is terminal and never reverts.
type Status string

const (
	StatusAwaitingUser         Status = "awaiting_user"
	StatusApproved             Status = "approved"
	StatusApprovedForSession   Status = "approved_for_session"
	StatusDenied               Status = "denied"
	StatusTimedOut             Status = "timed_out"
)

// Decision is the terminal (or pending) outcome of an approval request.
// Reason is only meaningful when Status is StatusDenied.
type Decision struct {
	Status Status
	Reason string
}

// Request describes a single pending tool-call approval.
type Request struct {
	CallID    string
	ToolName  string
	Input     []byte
	SessionID string
	CreatedAt time.Time
	Timeout   time.Duration
}

// DefaultTimeout is the approval wait before a pending request is
// considered timed out. The pre-tool hook adds its own 5s buffer on top,
// and the hook process itself times out at DefaultTimeout+10s.
const DefaultTimeout = 300 * time.Second

// Service answers approval requests for a running agent's tool calls.
// Implementations must be safe for concurrent use; RequestToolApproval
// may be called concurrently for distinct call IDs.
type Service interface {
	// RequestToolApproval blocks until a decision is reached or ctx is
	// cancelled, in which case it returns a TimedOut decision rather than
	// an error.
	RequestToolApproval(ctx context.Context, req Request) (Decision, error)

	// RegisterSession associates subsequent approval requests with a
	// session id once the agent has announced one, and flushes any
	// feedback queued before the session existed.
	RegisterSession(sessionID string)
}

// Unavailable wraps an Service that failed (transport error, process
// crash) so every call returns the taxonomy's prescribed fallback: a
// denial with a fixed reason, never an error that would be mistaken for
// fatal.
type Unavailable struct {
	Log *slog.Logger
}

func (u Unavailable) RequestToolApproval(ctx context.Context, req Request) (Decision, error) {
	if u.Log != nil {
		u.Log.Warn("approval service unavailable, denying by default", "tool", req.ToolName, "call_id", req.CallID)
	}
	return Decision{Status: StatusDenied, Reason: "approval service error"}, nil
}

func (u Unavailable) RegisterSession(string) {}

// AutoApprove wraps a Service and short-circuits every request to
// approved-for-session without consulting the delegate, matching the
// engine's non-interactive/CI mode.
type AutoApprove struct {
	Delegate Service
}

func (a AutoApprove) RequestToolApproval(ctx context.Context, req Request) (Decision, error) {
	return Decision{Status: StatusApprovedForSession}, nil
}

func (a AutoApprove) RegisterSession(sessionID string) {
	if a.Delegate != nil {
		a.Delegate.RegisterSession(sessionID)
	}
}
