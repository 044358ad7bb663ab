package debounce

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testMessage is a simple struct for testing the debouncer.
type testMessage struct {
	ID      string
	Channel string
	Content string
}

func TestResolveDebounceMs_Override(t *testing.T) {
	config := DebounceConfig{
		DebounceMs: 100,
		ByChannel: map[string]int{
			"slack": 200,
		},
	}

	override := 50
	result := ResolveDebounceMs(config, "slack", &override)

	assert.Equal(t, 50*time.Millisecond, result)
}

func TestResolveDebounceMs_ByChannel(t *testing.T) {
	config := DebounceConfig{
		DebounceMs: 100,
		ByChannel: map[string]int{
			"slack": 200,
		},
	}

	result := ResolveDebounceMs(config, "slack", nil)

	assert.Equal(t, 200*time.Millisecond, result)
}

func TestResolveDebounceMs_Base(t *testing.T) {
	config := DebounceConfig{
		DebounceMs: 100,
		ByChannel: map[string]int{
			"slack": 200,
		},
	}

	result := ResolveDebounceMs(config, "discord", nil)

	assert.Equal(t, 100*time.Millisecond, result)
}

func TestResolveDebounceMs_NoConfig(t *testing.T) {
	config := DebounceConfig{}

	result := ResolveDebounceMs(config, "any", nil)

	assert.Zero(t, result)
}

func TestDebouncer_ItemsWithSameKeyAreBatched(t *testing.T) {
	var flushedItems []*testMessage
	var mu sync.Mutex
	flushCalled := make(chan struct{}, 1)

	d := NewDebouncer(
		WithDebounceMs[testMessage](50),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			flushedItems = append(flushedItems, items...)
			mu.Unlock()
			select {
			case flushCalled <- struct{}{}:
			default:
			}
			return nil
		}),
	)
	defer d.Stop()

	// Enqueue multiple items with the same key
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "hello"})
	d.Enqueue(&testMessage{ID: "2", Channel: "slack", Content: "world"})
	d.Enqueue(&testMessage{ID: "3", Channel: "slack", Content: "!"})

	// Wait for flush
	select {
	case <-flushCalled:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("flush was not called within timeout")
	}

	mu.Lock()
	defer mu.Unlock()

	assert.Len(t, flushedItems, 3)
}

func TestDebouncer_ItemsWithDifferentKeysAreSeparate(t *testing.T) {
	flushes := make(map[string][]*testMessage)
	var mu sync.Mutex
	flushCount := int32(0)

	d := NewDebouncer(
		WithDebounceMs[testMessage](50),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			if len(items) > 0 {
				key := items[0].Channel
				flushes[key] = append(flushes[key], items...)
			}
			mu.Unlock()
			atomic.AddInt32(&flushCount, 1)
			return nil
		}),
	)
	defer d.Stop()

	// Enqueue items with different keys
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "slack1"})
	d.Enqueue(&testMessage{ID: "2", Channel: "discord", Content: "discord1"})
	d.Enqueue(&testMessage{ID: "3", Channel: "slack", Content: "slack2"})

	// Wait for all flushes
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Len(t, flushes, 2)
	assert.Len(t, flushes["slack"], 2)
	assert.Len(t, flushes["discord"], 1)
}

func TestDebouncer_FlushAfterTimeout(t *testing.T) {
	flushTime := time.Time{}
	enqueueTime := time.Time{}
	var mu sync.Mutex
	flushCalled := make(chan struct{})

	d := NewDebouncer(
		WithDebounceMs[testMessage](100),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			flushTime = time.Now()
			mu.Unlock()
			close(flushCalled)
			return nil
		}),
	)
	defer d.Stop()

	enqueueTime = time.Now()
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test"})

	select {
	case <-flushCalled:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("flush was not called within timeout")
	}

	mu.Lock()
	elapsed := flushTime.Sub(enqueueTime)
	mu.Unlock()

	// Should flush after approximately 100ms (allow some tolerance)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestDebouncer_ImmediateFlushWhenDebounceDisabled(t *testing.T) {
	var flushCount int32
	var mu sync.Mutex
	var flushedItems []*testMessage

	d := NewDebouncer(
		WithDebounceMs[testMessage](0), // Debounce disabled
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			atomic.AddInt32(&flushCount, 1)
			mu.Lock()
			flushedItems = append(flushedItems, items...)
			mu.Unlock()
			return nil
		}),
	)
	defer d.Stop()

	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test1"})
	d.Enqueue(&testMessage{ID: "2", Channel: "slack", Content: "test2"})

	// With debounce disabled, items should flush immediately
	time.Sleep(20 * time.Millisecond)

	count := atomic.LoadInt32(&flushCount)
	assert.Equal(t, int32(2), count)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, flushedItems, 2)
}

func TestDebouncer_ImmediateFlushWhenShouldDebounceFalse(t *testing.T) {
	var flushCount int32

	d := NewDebouncer(
		WithDebounceMs[testMessage](100),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithShouldDebounce(func(m *testMessage) bool {
			return m.Content != "urgent"
		}),
		WithOnFlush(func(items []*testMessage) error {
			atomic.AddInt32(&flushCount, 1)
			return nil
		}),
	)
	defer d.Stop()

	// This should flush immediately because shouldDebounce returns false
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "urgent"})

	// Give a moment for synchronous flush
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&flushCount))
}

func TestDebouncer_ManualFlushWithFlushKey(t *testing.T) {
	var flushedItems []*testMessage
	var mu sync.Mutex
	flushCalled := make(chan struct{}, 1)

	d := NewDebouncer(
		WithDebounceMs[testMessage](1000), // Long timeout
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			flushedItems = append(flushedItems, items...)
			mu.Unlock()
			select {
			case flushCalled <- struct{}{}:
			default:
			}
			return nil
		}),
	)
	defer d.Stop()

	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test1"})
	d.Enqueue(&testMessage{ID: "2", Channel: "slack", Content: "test2"})

	// Items should be pending
	assert.Equal(t, 2, d.PendingItems())

	// Manually flush
	d.FlushKey("slack")

	select {
	case <-flushCalled:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("flush was not called after FlushKey")
	}

	mu.Lock()
	defer mu.Unlock()

	assert.Len(t, flushedItems, 2)
	assert.Zero(t, d.PendingItems())
}

func TestDebouncer_ErrorHandlingInOnFlush(t *testing.T) {
	testErr := errors.New("flush error")
	var capturedErr error
	var capturedItems []*testMessage
	var mu sync.Mutex
	errorCalled := make(chan struct{})

	d := NewDebouncer(
		WithDebounceMs[testMessage](50),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			return testErr
		}),
		WithOnError(func(err error, items []*testMessage) {
			mu.Lock()
			capturedErr = err
			capturedItems = items
			mu.Unlock()
			close(errorCalled)
		}),
	)
	defer d.Stop()

	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test"})

	select {
	case <-errorCalled:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("onError was not called within timeout")
	}

	mu.Lock()
	defer mu.Unlock()

	assert.ErrorIs(t, capturedErr, testErr)
	assert.Len(t, capturedItems, 1)
}

func TestDebouncer_ConcurrentAccess(t *testing.T) {
	var totalItems int32
	var mu sync.Mutex

	d := NewDebouncer(
		WithDebounceMs[testMessage](20),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			atomic.AddInt32(&totalItems, int32(len(items)))
			mu.Unlock()
			return nil
		}),
	)
	defer d.Stop()

	const numGoroutines = 10
	const itemsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer wg.Done()
			for j := 0; j < itemsPerGoroutine; j++ {
				channel := "channel" // Same channel to test contention
				if j%2 == 0 {
					channel = "channel2"
				}
				d.Enqueue(&testMessage{
					ID:      "id",
					Channel: channel,
					Content: "test",
				})
			}
		}(i)
	}

	wg.Wait()

	// Wait for all pending items to flush
	time.Sleep(100 * time.Millisecond)

	total := atomic.LoadInt32(&totalItems)
	expected := int32(numGoroutines * itemsPerGoroutine)

	assert.Equal(t, expected, total)
}

func TestDebouncer_StopCleansUpTimers(t *testing.T) {
	flushCalled := int32(0)

	d := NewDebouncer(
		WithDebounceMs[testMessage](100),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			atomic.AddInt32(&flushCalled, 1)
			return nil
		}),
	)

	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test1"})
	d.Enqueue(&testMessage{ID: "2", Channel: "discord", Content: "test2"})

	// Verify items are pending
	assert.Equal(t, 2, d.PendingCount())

	// Stop the debouncer
	d.Stop()

	// Verify buffers are cleared
	assert.Zero(t, d.PendingCount())

	// Wait to ensure timers don't fire after stop
	time.Sleep(200 * time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&flushCalled), "flush should not be called after Stop")
}

func TestDebouncer_EnqueueAfterStop(t *testing.T) {
	flushCalled := int32(0)

	d := NewDebouncer(
		WithDebounceMs[testMessage](50),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			atomic.AddInt32(&flushCalled, 1)
			return nil
		}),
	)

	d.Stop()

	// Enqueue after stop should be a no-op
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test"})

	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&flushCalled), "flush should not be called after Stop")
}

func TestDebouncer_EmptyKeyFlushesImmediately(t *testing.T) {
	var flushCount int32

	d := NewDebouncer(
		WithDebounceMs[testMessage](100),
		WithBuildKey(func(m *testMessage) string {
			if m.Channel == "" {
				return ""
			}
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			atomic.AddInt32(&flushCount, 1)
			return nil
		}),
	)
	defer d.Stop()

	// Empty key should flush immediately
	d.Enqueue(&testMessage{ID: "1", Channel: "", Content: "test"})

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&flushCount))
}

func TestDebouncer_TimerResetsOnNewItem(t *testing.T) {
	flushTime := time.Time{}
	firstEnqueueTime := time.Time{}
	var mu sync.Mutex
	flushCalled := make(chan struct{})

	d := NewDebouncer(
		WithDebounceMs[testMessage](100),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			flushTime = time.Now()
			mu.Unlock()
			close(flushCalled)
			return nil
		}),
	)
	defer d.Stop()

	firstEnqueueTime = time.Now()
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test1"})

	// Wait 50ms then add another item (should reset timer)
	time.Sleep(50 * time.Millisecond)
	d.Enqueue(&testMessage{ID: "2", Channel: "slack", Content: "test2"})

	select {
	case <-flushCalled:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("flush was not called within timeout")
	}

	mu.Lock()
	elapsed := flushTime.Sub(firstEnqueueTime)
	mu.Unlock()

	// Should flush ~150ms after first enqueue (50ms delay + 100ms debounce)
	assert.GreaterOrEqual(t, elapsed, 120*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 250*time.Millisecond)
}

func TestDebouncer_FlushKeyNonExistent(t *testing.T) {
	flushCalled := int32(0)

	d := NewDebouncer(
		WithDebounceMs[testMessage](100),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			atomic.AddInt32(&flushCalled, 1)
			return nil
		}),
	)
	defer d.Stop()

	// FlushKey on non-existent key should be a no-op
	d.FlushKey("nonexistent")

	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&flushCalled))
}

func TestDebouncer_WithDebounceDuration(t *testing.T) {
	flushTime := time.Time{}
	enqueueTime := time.Time{}
	var mu sync.Mutex
	flushCalled := make(chan struct{})

	d := NewDebouncer(
		WithDebounceDuration[testMessage](75*time.Millisecond),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			flushTime = time.Now()
			mu.Unlock()
			close(flushCalled)
			return nil
		}),
	)
	defer d.Stop()

	enqueueTime = time.Now()
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test"})

	select {
	case <-flushCalled:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("flush was not called within timeout")
	}

	mu.Lock()
	elapsed := flushTime.Sub(enqueueTime)
	mu.Unlock()

	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 150*time.Millisecond)
}

func TestDebouncer_DefaultBuildKey(t *testing.T) {
	var flushedItems []*testMessage
	var mu sync.Mutex
	flushCalled := make(chan struct{}, 1)

	// No buildKey provided, should use default
	d := NewDebouncer(
		WithDebounceMs[testMessage](50),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			flushedItems = append(flushedItems, items...)
			mu.Unlock()
			select {
			case flushCalled <- struct{}{}:
			default:
			}
			return nil
		}),
	)
	defer d.Stop()

	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "test1"})
	d.Enqueue(&testMessage{ID: "2", Channel: "discord", Content: "test2"})

	select {
	case <-flushCalled:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("flush was not called within timeout")
	}

	mu.Lock()
	defer mu.Unlock()

	// Both items should be batched under the default key
	assert.Len(t, flushedItems, 2)
}

func TestDebouncer_FlushExistingBufferBeforeImmediate(t *testing.T) {
	var flushCounts []int
	var mu sync.Mutex

	d := NewDebouncer(
		WithDebounceMs[testMessage](100),
		WithBuildKey(func(m *testMessage) string {
			return m.Channel
		}),
		WithShouldDebounce(func(m *testMessage) bool {
			return m.Content != "urgent"
		}),
		WithOnFlush(func(items []*testMessage) error {
			mu.Lock()
			flushCounts = append(flushCounts, len(items))
			mu.Unlock()
			return nil
		}),
	)
	defer d.Stop()

	// Add items that should be debounced
	d.Enqueue(&testMessage{ID: "1", Channel: "slack", Content: "normal1"})
	d.Enqueue(&testMessage{ID: "2", Channel: "slack", Content: "normal2"})

	// Add an urgent item that should flush immediately
	// This should first flush the existing buffer, then flush the urgent item
	d.Enqueue(&testMessage{ID: "3", Channel: "slack", Content: "urgent"})

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	// Should have flushed the buffer (2 items) then the urgent item (1 item)
	if assert.Len(t, flushCounts, 2) {
		assert.Equal(t, 2, flushCounts[0])
		assert.Equal(t, 1, flushCounts[1])
	}
}
