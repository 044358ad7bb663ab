package plaintext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convengine/engine/internal/entries"
	"github.com/convengine/engine/internal/store"
)

func TestNormalizerEmitsOnePatchPerLine(t *testing.T) {
	s := store.NewStore()
	idx := store.NewEntryIndexProvider()
	n := New(idx, s, nil, nil)

	n.Feed("hello\nworld\npart")
	n.Feed("ial\n")

	history := s.GetHistory()
	require.Len(t, history, 3)
	want := []string{"hello", "world", "partial"}
	for i, r := range history {
		assert.Equal(t, want[i], r.Patch.Entry.Content)
		assert.Equal(t, entries.KindAssistantMsg, r.Patch.Entry.Kind)
	}
}

func TestNormalizerRetainsPartialLineUntilClose(t *testing.T) {
	s := store.NewStore()
	idx := store.NewEntryIndexProvider()
	n := New(idx, s, nil, nil)

	n.Feed("no newline yet")
	assert.Empty(t, s.GetHistory(), "expected no patch emitted before newline or Close")

	n.Close()
	history := s.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "no newline yet", history[0].Patch.Entry.Content)
}

func TestNormalizerAppliesLineTransformer(t *testing.T) {
	s := store.NewStore()
	idx := store.NewEntryIndexProvider()
	n := New(idx, s, nil, strings.TrimSpace)

	n.Feed("  padded  \n")
	history := s.GetHistory()
	require.NotEmpty(t, history)
	assert.Equal(t, "padded", history[0].Patch.Entry.Content)
}
