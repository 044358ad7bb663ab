package codexrpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackFlushesOnceConversationIDKnown(t *testing.T) {
	var buf bytes.Buffer
	peer := NewPeer(&buf)
	c := NewAppServerClient(peer, nil, true, nil)

	c.EnqueueFeedback("not now")
	assert.NotContains(t, buf.String(), "sendUserMessage", "expected feedback to stay queued with no conversation id yet")

	c.RegisterConversationID("conv-1")
	assert.Contains(t, buf.String(), "User feedback: not now", "expected queued feedback to flush once conversation id registered")
}

func TestAutoApproveShortCircuitsApprovalRequest(t *testing.T) {
	var buf bytes.Buffer
	peer := NewPeer(&buf)
	c := NewAppServerClient(peer, nil, true, nil)

	line := []byte(`{"jsonrpc":"2.0","id":1,"method":"execCommandApproval","params":{"callId":"c1","command":"ls"}}`)
	require.NoError(t, peer.HandleLine(line))

	assert.Contains(t, buf.String(), `"approved_for_session"`, "expected auto-approve response")
}
