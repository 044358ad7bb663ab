package codexrpc

import "encoding/json"

// SessionConfigured is the notification payload carrying the session id
// and model once a conversation starts, plus the conversation's replayed
// initial_messages on resume.
type SessionConfigured struct {
	SessionID       string          `json:"sessionId"`
	Model           string          `json:"model"`
	ReasoningEffort string          `json:"reasoningEffort"`
	InitialMessages json.RawMessage `json:"initialMessages,omitempty"`
}

// MaxLoggedInitialMessages bounds how much of InitialMessages is kept
// when rendering a SessionConfigured notification for logging: history
// replay can be arbitrarily large and risks truncation/corruption in
// transit, so the log line only ever records its size.
const MaxLoggedInitialMessages = 0

// ForLogging returns a copy of sc with InitialMessages replaced by a
// small marker, since history can be large and get truncated during
// transmission, corrupting the JSON line if logged verbatim.
func (sc SessionConfigured) ForLogging() SessionConfigured {
	out := sc
	if len(sc.InitialMessages) > 0 {
		out.InitialMessages = json.RawMessage(`"<omitted>"`)
	}
	return out
}
