package codexrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/convengine/engine/internal/approval"
)

// sessionIDFallback recovers a session id from a truncated JSON line that
// still contains a bare UUID, when the line itself failed to parse.
var sessionIDFallback = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// RecoverSessionID applies the regex fallback used when a SessionConfigured
// notification's JSON body was truncated in transit.
func RecoverSessionID(raw string) (string, bool) {
	m := sessionIDFallback.FindString(raw)
	return m, m != ""
}

// AppServerClient binds a JSON-RPC Peer to the approval service and the
// conversation's feedback queue, mirroring the responsibilities the
// original engine's app-server client holds: current conversation id,
// auto-approve policy, and a process-wide log writer.
type AppServerClient struct {
	Peer       *Peer
	Approvals  approval.Service
	AutoApprove bool
	Log        *slog.Logger

	mu            sync.Mutex
	conversationID string
	feedback      *approval.FeedbackQueue
}

// NewAppServerClient builds a client bound to peer, answering approvals
// via svc (or auto-approving every request if autoApprove is true).
func NewAppServerClient(peer *Peer, svc approval.Service, autoApprove bool, log *slog.Logger) *AppServerClient {
	if log == nil {
		log = slog.Default()
	}
	c := &AppServerClient{
		Peer:        peer,
		Approvals:   svc,
		AutoApprove: autoApprove,
		Log:         log,
		feedback:    approval.NewFeedbackQueue(),
	}
	peer.OnServerRequest = c.handleServerRequest
	return c
}

// Initialize sends the handshake request.
func (c *AppServerClient) Initialize(clientName, clientVersion string) (int64, <-chan Response, error) {
	return c.Peer.Call("initialize", map[string]any{
		"clientInfo": map[string]string{"name": clientName, "version": clientVersion},
	})
}

// NewConversation starts a fresh conversation with the given model/config.
func (c *AppServerClient) NewConversation(params any) (int64, <-chan Response, error) {
	return c.Peer.Call("newConversation", params)
}

// ResumeConversation resumes a previously started conversation by id.
func (c *AppServerClient) ResumeConversation(conversationID string) (int64, <-chan Response, error) {
	return c.Peer.Call("resumeConversation", map[string]string{"conversationId": conversationID})
}

// AddConversationListener subscribes to codex/event/* notifications for a
// conversation.
func (c *AppServerClient) AddConversationListener(conversationID string) (int64, <-chan Response, error) {
	return c.Peer.Call("addConversationListener", map[string]string{"conversationId": conversationID})
}

// SendUserMessage sends a user message into the running conversation.
func (c *AppServerClient) SendUserMessage(conversationID, text string) error {
	_, _, err := c.Peer.Call("sendUserMessage", map[string]string{
		"conversationId": conversationID,
		"message":        text,
	})
	return err
}

// RegisterConversationID records the conversation id once known and
// flushes any feedback queued before it existed.
func (c *AppServerClient) RegisterConversationID(id string) {
	c.mu.Lock()
	c.conversationID = id
	c.mu.Unlock()
	c.flushFeedback()
}

// EnqueueFeedback queues a denial reason for delivery as a follow-up user
// message, flushing immediately if a conversation id is already known.
func (c *AppServerClient) EnqueueFeedback(reason string) {
	c.feedback.Enqueue(approval.FormatFeedback(reason))
	c.flushFeedback()
}

// FlushOnTurnAborted drains the feedback queue on a turn_aborted event,
// per the feedback-queue draining contract.
func (c *AppServerClient) FlushOnTurnAborted() { c.flushFeedback() }

func (c *AppServerClient) flushFeedback() {
	c.mu.Lock()
	id := c.conversationID
	c.mu.Unlock()
	if id == "" {
		return
	}
	for _, msg := range c.feedback.Flush() {
		if err := c.SendUserMessage(id, msg); err != nil {
			c.Log.Warn("codexrpc: failed to send queued feedback", "error", err)
		}
	}
}

// execApprovalParams / applyPatchApprovalParams are the payload shapes
// Codex sends for the two approval request methods.
type execApprovalParams struct {
	CallID string `json:"callId"`
	Command string `json:"command"`
}

type applyPatchApprovalParams struct {
	CallID string `json:"callId"`
	Patches []struct {
		Path string `json:"path"`
	} `json:"patches"`
}

func (c *AppServerClient) handleServerRequest(req ServerRequest) {
	switch req.Method {
	case "execCommandApproval":
		var p execApprovalParams
		_ = json.Unmarshal(req.Params, &p)
		c.respondApproval(req.ID, p.CallID, "bash")
	case "applyPatchApproval":
		var p applyPatchApprovalParams
		_ = json.Unmarshal(req.Params, &p)
		c.respondApproval(req.ID, p.CallID, "edit")
	default:
		c.Log.Debug("codexrpc: unrecognized server request", "method", req.Method)
	}
}

func (c *AppServerClient) respondApproval(rpcID int64, callID, toolName string) {
	decision := c.requestApproval(callID, toolName)
	wire, feedback := approval.ToReviewDecision(decision)
	if feedback != "" {
		c.EnqueueFeedback(feedback)
	}
	_ = c.Peer.Respond(rpcID, map[string]string{"decision": string(wire)}, nil)
}

// requestApproval asks the approval service for a decision, matching the
// bidirectional state machine: auto_approve short-circuits to Approved
// without consulting the service; otherwise the configured service
// decides, with an unavailable service collapsing to a deliberate denial.
func (c *AppServerClient) requestApproval(callID, toolName string) approval.Decision {
	if c.AutoApprove {
		return approval.Decision{Status: approval.StatusApprovedForSession}
	}
	if c.Approvals == nil {
		return approval.Decision{Status: approval.StatusDenied, Reason: "approval service error"}
	}

	// A short delay before asking mirrors the original's behavior of
	// letting a fast in-flight UI decision win without a round trip.
	time.Sleep(20 * time.Millisecond)

	d, err := c.Approvals.RequestToolApproval(context.Background(), approval.Request{
		CallID:   callID,
		ToolName: toolName,
		Timeout:  approval.DefaultTimeout,
	})
	if err != nil {
		return approval.Decision{Status: approval.StatusDenied, Reason: "approval service error"}
	}
	return d
}
