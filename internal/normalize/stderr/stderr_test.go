package stderr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convengine/engine/internal/store"
)

func TestNormalizerClustersMultiLineTraceback(t *testing.T) {
	s := store.NewStore()
	idx := store.NewEntryIndexProvider()
	n := New(idx, s, 20*time.Millisecond)

	n.Feed("Traceback (most recent call last):\n")
	n.Feed("  File \"x.py\", line 1\n")
	n.Feed("ValueError: boom\n")
	n.Close()

	history := s.GetHistory()
	require.Len(t, history, 1, "expected one clustered ErrorMessage patch")
	assert.Equal(t, "Traceback (most recent call last):\n  File \"x.py\", line 1\nValueError: boom", history[0].Patch.Entry.Content)
}

func TestStripANSI(t *testing.T) {
	got := StripANSI("\x1b[31mred text\x1b[0m")
	assert.Equal(t, "red text", got)
}

func TestNormalizerSkipsBlankLines(t *testing.T) {
	s := store.NewStore()
	idx := store.NewEntryIndexProvider()
	n := New(idx, s, 10*time.Millisecond)

	n.Feed("\n\n")
	n.Feed("real line\n")
	n.Close()

	history := s.GetHistory()
	assert.Len(t, history, 1, "expected blank lines skipped")
}

func TestNormalizerSharesIndexAcrossStreams(t *testing.T) {
	s := store.NewStore()
	idx := store.NewEntryIndexProvider()
	_ = context.Background()

	first := idx.Next() // simulate a stdout patch claiming index 0
	require.Equal(t, 0, first)

	n := New(idx, s, 10*time.Millisecond)
	n.Feed("error\n")
	n.Close()

	history := s.GetHistory()
	require.NotEmpty(t, history)
	assert.Equal(t, 1, history[0].Patch.Index, "expected stderr patch to continue the shared index at 1")
}
