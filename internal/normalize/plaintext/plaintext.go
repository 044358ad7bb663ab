// Package plaintext implements the C5 plain-text normalizer used by
// Copilot and other freeform agents whose output is not a structured
// wire protocol: newline-terminated chunks become one patch per complete
// line, through a caller-supplied entry producer and optional line
// transformer.
package plaintext

import (
	"strings"

	"github.com/convengine/engine/internal/entries"
	"github.com/convengine/engine/internal/patch"
	"github.com/convengine/engine/internal/store"
)

// EntryProducer maps a line's content to the Entry it should become.
// Most agents use entries.NewAssistantMessage; freeform agents that also
// want system lines recognized can supply a richer producer.
type EntryProducer func(content string) entries.Entry

// LineTransformer is applied to each complete line before the entry
// producer sees it (ANSI stripping, trimming, session-marker removal).
type LineTransformer func(line string) string

// Normalizer accepts raw chunks and emits one Add patch per complete
// line.
type Normalizer struct {
	index     *store.EntryIndexProvider
	sink      *store.Store
	produce   EntryProducer
	transform LineTransformer
	pending   strings.Builder
}

// New builds a plain-text normalizer. transform may be nil, in which case
// lines pass through unmodified.
func New(idx *store.EntryIndexProvider, sink *store.Store, produce EntryProducer, transform LineTransformer) *Normalizer {
	if produce == nil {
		produce = entries.NewAssistantMessage
	}
	return &Normalizer{index: idx, sink: sink, produce: produce, transform: transform}
}

// Feed appends a chunk, emitting one patch per complete line it contains.
// A trailing partial line is retained until the next call completes it.
func (n *Normalizer) Feed(chunk string) {
	n.pending.WriteString(chunk)
	for {
		s := n.pending.String()
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(s[:idx], "\r")
		n.pending.Reset()
		n.pending.WriteString(s[idx+1:])
		n.emit(line)
	}
}

// Close flushes any retained partial line as a final entry.
func (n *Normalizer) Close() {
	if n.pending.Len() > 0 {
		n.emit(n.pending.String())
		n.pending.Reset()
	}
}

func (n *Normalizer) emit(line string) {
	if n.transform != nil {
		line = n.transform(line)
	}
	if line == "" {
		return
	}
	entry := n.produce(line)
	i := n.index.Next()
	n.sink.PushPatch(patch.Add(i, entry))
}
