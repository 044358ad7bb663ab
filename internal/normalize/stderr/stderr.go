// Package stderr implements the C4 stderr normalizer: stderr bytes are
// accumulated, split on newlines, ANSI-stripped, and turned into
// ErrorMessage entries. A short debounce clusters multi-line tracebacks
// into fewer entries instead of emitting one per line.
package stderr

import (
	"regexp"
	"strings"
	"time"

	"github.com/convengine/engine/internal/debounce"
	"github.com/convengine/engine/internal/entries"
	"github.com/convengine/engine/internal/patch"
	"github.com/convengine/engine/internal/store"
)

// DefaultDebounce is the clustering window called for by the spec: long
// enough that a multi-line Python/Node traceback lands in one entry, short
// enough that isolated error lines still surface promptly.
const DefaultDebounce = 100 * time.Millisecond

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI CSI escape sequences from a line.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Normalizer turns a stream of stderr chunks into ErrorMessage patches,
// sharing its index provider with the stdout-side normalizer so
// interleaved entries land in wall-clock arrival order.
type Normalizer struct {
	index    *store.EntryIndexProvider
	sink     *store.Store
	deb      *debounce.Debouncer[string]
	pending  strings.Builder
}

// New builds a stderr normalizer writing patches into sink, sharing idx
// with the run's stdout normalization, debouncing with the given window
// (DefaultDebounce if zero).
func New(idx *store.EntryIndexProvider, sink *store.Store, window time.Duration) *Normalizer {
	if window <= 0 {
		window = DefaultDebounce
	}
	n := &Normalizer{index: idx, sink: sink}
	n.deb = debounce.NewDebouncer[string](
		debounce.WithDebounceDuration[string](window),
		debounce.WithBuildKey[string](func(item *string) string { return "stderr" }),
		debounce.WithOnFlush[string](func(items []*string) error {
			n.flush(items)
			return nil
		}),
	)
	return n
}

// Feed appends a chunk of raw stderr bytes, splitting complete lines out
// for debounced emission. A trailing partial line is retained until the
// next chunk completes it or Close flushes it verbatim.
func (n *Normalizer) Feed(chunk string) {
	n.pending.WriteString(chunk)
	for {
		s := n.pending.String()
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			break
		}
		line := StripANSI(strings.TrimSuffix(s[:idx], "\r"))
		n.pending.Reset()
		n.pending.WriteString(s[idx+1:])
		if strings.TrimSpace(line) == "" {
			continue
		}
		n.deb.Enqueue(&line)
	}
}

// Close flushes any buffered partial line and stops the debouncer's
// timers, emitting whatever remains.
func (n *Normalizer) Close() {
	if rest := StripANSI(n.pending.String()); strings.TrimSpace(rest) != "" {
		n.deb.Enqueue(&rest)
	}
	n.pending.Reset()
	n.deb.FlushKey("stderr")
	n.deb.Stop()
}

func (n *Normalizer) flush(items []*string) {
	if len(items) == 0 {
		return
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = *it
	}
	content := strings.Join(lines, "\n")
	idx := n.index.Next()
	n.sink.PushPatch(patch.Add(idx, entries.NewErrorMessage(content)))
}
