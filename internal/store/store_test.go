package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convengine/engine/internal/entries"
	"github.com/convengine/engine/internal/patch"
)

func TestHistoryPlusStreamReplaysBacklogThenLive(t *testing.T) {
	s := NewStore()
	s.PushStdout("line one")
	s.PushPatch(patch.Add(0, entries.NewSystemMessage("boot")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := s.HistoryPlusStream(ctx)

	require.Len(t, sub.History, 2)

	s.PushStdout("line two")
	select {
	case r := <-sub.Live:
		assert.Equal(t, RecordStdout, r.Kind)
		assert.Equal(t, "line two", r.Line)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live record")
	}
}

func TestSlowSubscriberIsDisconnectedNotBlocking(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := s.HistoryPlusStream(ctx)

	// Flood well past the buffer without ever draining sub.Live; Push must
	// never block the producer.
	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultSubscriberBuffer*4; i++ {
			s.PushStdout("x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked on a slow subscriber")
	}

	assert.NotZero(t, s.DisconnectedSubscribers(), "expected the flooded subscriber to be disconnected")
	if _, ok := <-sub.Live; ok {
		// Channel may still have buffered items; drain until closed.
		for range sub.Live {
		}
	}
}

func TestStdoutLinesStreamSplitsPartialChunks(t *testing.T) {
	s := NewStore()
	s.PushStdout("hel")
	s.PushStdout("lo\nwor")
	s.PushStdout("ld\n")

	ctx, cancel := context.WithCancel(context.Background())
	sub := s.HistoryPlusStream(ctx)
	lines := StdoutLinesStream(sub)

	got := []string{<-lines, <-lines}
	cancel()

	assert.Equal(t, []string{"hello", "world"}, got)
}

func TestGetHistorySnapshotIsIndependent(t *testing.T) {
	s := NewStore()
	s.PushStdout("a")
	snap := s.GetHistory()
	s.PushStdout("b")
	assert.Len(t, snap, 1, "snapshot should not observe later pushes")
}
