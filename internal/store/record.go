// Package store implements the bounded, multi-producer/multi-consumer
// message log that sits between a running agent process and its
// subscribers (UI clients, test harnesses). Producers never block on slow
// consumers: a subscriber that falls behind is disconnected rather than
// applying backpressure upstream.
package store

import (
	"github.com/convengine/engine/internal/patch"
)

// RecordKind discriminates the five record variants the store carries.
type RecordKind string

const (
	RecordStdout    RecordKind = "stdout"
	RecordStderr    RecordKind = "stderr"
	RecordPatch     RecordKind = "patch"
	RecordSessionID RecordKind = "session_id"
	RecordFinished  RecordKind = "finished"
)

// Record is one entry in the store's log. Exactly one payload field is
// populated, selected by Kind.
type Record struct {
	Kind RecordKind `json:"kind"`

	Line      string      `json:"line,omitempty"`       // Stdout / Stderr
	Patch     *patch.Patch `json:"patch,omitempty"`       // Patch
	SessionID string      `json:"session_id,omitempty"` // SessionID
	ExitCode  *int        `json:"exit_code,omitempty"`   // Finished
}

func NewStdoutRecord(line string) Record { return Record{Kind: RecordStdout, Line: line} }
func NewStderrRecord(line string) Record { return Record{Kind: RecordStderr, Line: line} }
func NewPatchRecord(p patch.Patch) Record { return Record{Kind: RecordPatch, Patch: &p} }
func NewSessionIDRecord(id string) Record { return Record{Kind: RecordSessionID, SessionID: id} }

func NewFinishedRecord(exitCode *int) Record {
	return Record{Kind: RecordFinished, ExitCode: exitCode}
}
