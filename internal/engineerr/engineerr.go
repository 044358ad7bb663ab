// Package engineerr defines the engine's error taxonomy. None of these are
// meant to terminate the process: normalizers classify failures into one
// of these kinds and fall through to an ErrorMessage/SystemMessage entry
// or a log line, per the propagation policy that the normalization engine
// never panics on input.
package engineerr

import "fmt"

// Kind discriminates the error taxonomy.
type Kind string

const (
	// KindSpawnFailure means the child process could not start. Fatal for
	// the attempt; the driver surfaces it as an ErrorMessage and ends the
	// stream.
	KindSpawnFailure Kind = "spawn_failure"

	// KindDecodeFailure means a transport line was neither JSON nor a
	// recognized marker. Non-fatal: emit one SystemMessage, continue.
	KindDecodeFailure Kind = "decode_failure"

	// KindProtocolMismatch means a delta arrived for a content block that
	// was never announced. Non-fatal: log, drop the delta, continue.
	KindProtocolMismatch Kind = "protocol_mismatch"

	// KindOrphanToolResult means a tool-result arrived with no matching
	// ToolUse entry by call_id. Non-fatal: log and drop.
	KindOrphanToolResult Kind = "orphan_tool_result"

	// KindApprovalServiceUnavailable means the approval backend could not
	// be reached. Treated as Denied{reason: "approval service error"};
	// never fatal.
	KindApprovalServiceUnavailable Kind = "approval_service_unavailable"

	// KindModelStreamError means the agent process itself reported a
	// stream-level error. Non-fatal: emit ErrorMessage, the agent decides
	// whether to continue.
	KindModelStreamError Kind = "model_stream_error"

	// KindBackpressureDrop means a subscriber could not keep up and was
	// disconnected. The core continues unaffected.
	KindBackpressureDrop Kind = "backpressure_drop"

	// KindStoreSubscribeFailure is the only fatal condition: the engine
	// could not subscribe to the message store at startup.
	KindStoreSubscribeFailure Kind = "store_subscribe_failure"
)

// Error is the engine's typed error, carrying the taxonomy Kind plus the
// wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is against a bare Kind sentinel created via New with
// no message (the common "is this a spawn failure" check).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error of the given kind with a message and no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Sentinel values for errors.Is comparisons against a bare kind.
var (
	ErrSpawnFailure               = New(KindSpawnFailure, "")
	ErrDecodeFailure              = New(KindDecodeFailure, "")
	ErrProtocolMismatch           = New(KindProtocolMismatch, "")
	ErrOrphanToolResult           = New(KindOrphanToolResult, "")
	ErrApprovalServiceUnavailable = New(KindApprovalServiceUnavailable, "")
	ErrModelStreamError           = New(KindModelStreamError, "")
	ErrBackpressureDrop           = New(KindBackpressureDrop, "")
	ErrStoreSubscribeFailure      = New(KindStoreSubscribeFailure, "")
)
