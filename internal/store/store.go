package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/convengine/engine/internal/patch"
)

// DefaultSubscriberBuffer is the per-subscriber channel buffer size. A
// subscriber whose channel fills up is dropped rather than stalling the
// producer, mirroring the original engine's two-lane backpressure sink
// collapsed here to a single bounded lane since every record kind in this
// store is delivery-significant (there is no droppable "model delta" lane
// once streaming text has already been coalesced into patches).
const DefaultSubscriberBuffer = 256

// Store is a multi-producer/multi-consumer, append-only log of Records.
// Producers call the Push* methods; consumers call HistoryPlusStream to
// receive the full backlog followed by a live feed.
type Store struct {
	mu      sync.Mutex
	history []Record
	subs    map[uint64]chan Record
	nextSub uint64
	dropped uint64
	closed  bool
	subBuf  int
}

// NewStore creates an empty store using DefaultSubscriberBuffer for each
// subscriber's channel.
func NewStore() *Store {
	return NewStoreWithBuffer(DefaultSubscriberBuffer)
}

// NewStoreWithBuffer creates an empty store with a caller-chosen per-
// subscriber buffer size, for deployments (internal/config's
// StoreConfig.SubscriberBufferSize) that need more headroom for a slow
// consumer than the default affords.
func NewStoreWithBuffer(bufSize int) *Store {
	if bufSize <= 0 {
		bufSize = DefaultSubscriberBuffer
	}
	return &Store{subs: make(map[uint64]chan Record), subBuf: bufSize}
}

// push appends a record to history and fans it out to all live subscribers.
// A subscriber whose buffer is full is disconnected (its channel is closed
// and removed) rather than blocking this call.
func (s *Store) push(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.history = append(s.history, r)
	for id, ch := range s.subs {
		select {
		case ch <- r:
		default:
			close(ch)
			delete(s.subs, id)
			atomic.AddUint64(&s.dropped, 1)
		}
	}
}

func (s *Store) PushStdout(line string)     { s.push(NewStdoutRecord(line)) }
func (s *Store) PushStderr(line string)     { s.push(NewStderrRecord(line)) }
func (s *Store) PushPatch(p patch.Patch)    { s.push(NewPatchRecord(p)) }
func (s *Store) PushSessionID(id string)    { s.push(NewSessionIDRecord(id)) }
func (s *Store) PushFinished(exitCode *int) { s.push(NewFinishedRecord(exitCode)) }

// DisconnectedSubscribers returns the number of subscribers dropped so far
// for falling behind.
func (s *Store) DisconnectedSubscribers() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// GetHistory returns a snapshot copy of the log accumulated so far.
func (s *Store) GetHistory() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.history))
	copy(out, s.history)
	return out
}

// Subscription is returned by HistoryPlusStream: History is the backlog at
// subscribe time, Live delivers records pushed afterward, and Unsubscribe
// releases the subscriber slot.
type Subscription struct {
	History     []Record
	Live        <-chan Record
	Unsubscribe func()
}

// HistoryPlusStream returns the current history plus a channel of records
// pushed after the snapshot was taken. The snapshot and subscription are
// established atomically so no record is missed or duplicated at the
// boundary.
func (s *Store) HistoryPlusStream(ctx context.Context) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := make([]Record, len(s.history))
	copy(hist, s.history)

	id := s.nextSub
	s.nextSub++
	ch := make(chan Record, s.subBuf)
	if !s.closed {
		s.subs[id] = ch
	} else {
		close(ch)
	}

	unsub := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if live, ok := s.subs[id]; ok {
			close(live)
			delete(s.subs, id)
		}
	}

	go func() {
		<-ctx.Done()
		unsub()
	}()

	return Subscription{History: hist, Live: ch, Unsubscribe: unsub}
}

// Close disconnects all subscribers and marks the store closed; further
// Push* calls are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}
