package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidatingService wraps a Service and rejects a tool-approval request
// before it ever reaches the delegate if req.Input does not match the
// JSON schema registered for req.ToolName. A tool with no registered
// schema passes through unchecked, so callers only need to register
// schemas for the tools they want to constrain.
type ValidatingService struct {
	Delegate Service
	Log      interface {
		Warn(msg string, args ...any)
	}

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewValidatingService wraps delegate with an empty schema registry.
func NewValidatingService(delegate Service) *ValidatingService {
	return &ValidatingService{Delegate: delegate, schemas: make(map[string]*jsonschema.Schema)}
}

// RegisterSchema compiles schemaJSON and registers it for toolName. Call
// this during startup for every tool whose input shape should be enforced
// before an approval prompt is ever shown.
func (v *ValidatingService) RegisterSchema(toolName, schemaJSON string) error {
	compiled, err := jsonschema.CompileString(toolName, schemaJSON)
	if err != nil {
		return fmt.Errorf("approval: compile schema for %s: %w", toolName, err)
	}
	v.mu.Lock()
	v.schemas[toolName] = compiled
	v.mu.Unlock()
	return nil
}

// RequestToolApproval validates req.Input against the registered schema
// for req.ToolName (if any) before delegating. A validation failure is
// reported the same way an unavailable approval backend would be: a
// denial, never an error, since a malformed tool call is attributable to
// the agent, not to the approval transport.
func (v *ValidatingService) RequestToolApproval(ctx context.Context, req Request) (Decision, error) {
	v.mu.RLock()
	schema, ok := v.schemas[req.ToolName]
	v.mu.RUnlock()

	if ok {
		var payload any
		if err := json.Unmarshal(req.Input, &payload); err != nil {
			return Decision{Status: StatusDenied, Reason: "tool input is not valid JSON"}, nil
		}
		if err := schema.Validate(payload); err != nil {
			if v.Log != nil {
				v.Log.Warn("approval: tool input failed schema validation", "tool", req.ToolName, "error", err)
			}
			return Decision{Status: StatusDenied, Reason: "tool input failed schema validation"}, nil
		}
	}

	return v.Delegate.RequestToolApproval(ctx, req)
}

// RegisterSession forwards to the delegate.
func (v *ValidatingService) RegisterSession(sessionID string) {
	v.Delegate.RegisterSession(sessionID)
}
