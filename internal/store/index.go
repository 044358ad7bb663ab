package store

import "sync/atomic"

// EntryIndexProvider hands out the dense, monotonically increasing indices
// normalizers use for Add patches. A single provider is shared across the
// stdout and stderr normalization passes for one agent run so indices
// never collide between the two streams.
type EntryIndexProvider struct {
	next int64
}

// NewEntryIndexProvider returns a provider starting fresh at index 0.
func NewEntryIndexProvider() *EntryIndexProvider {
	return &EntryIndexProvider{}
}

// StartFrom scans an existing store's history for the highest index
// referenced by a Patch record and returns a provider that resumes one
// past it. This is how an engine process reattaches to a store that
// already has patches in it after a restart, instead of re-issuing
// indices a subscriber has already seen.
func StartFrom(s *Store) *EntryIndexProvider {
	history := s.GetHistory()
	max := -1
	for _, r := range history {
		if r.Kind != RecordPatch || r.Patch == nil {
			continue
		}
		if r.Patch.Index > max {
			max = r.Patch.Index
		}
	}
	return &EntryIndexProvider{next: int64(max + 1)}
}

// Next returns the next index and advances the counter.
func (p *EntryIndexProvider) Next() int {
	return int(atomic.AddInt64(&p.next, 1) - 1)
}

// Current returns the next index that would be handed out, without
// advancing the counter.
func (p *EntryIndexProvider) Current() int {
	return int(atomic.LoadInt64(&p.next))
}

// Reset rewinds the provider to index 0. Used only in tests.
func (p *EntryIndexProvider) Reset() {
	atomic.StoreInt64(&p.next, 0)
}
