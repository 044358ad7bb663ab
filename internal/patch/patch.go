// Package patch implements the canonical conversation patch model: an
// RFC-6902-style JSON patch document over a single root "entries" array,
// restricted to the three operations the engine needs (add/replace/remove).
package patch

import (
	"encoding/json"
	"fmt"

	"github.com/convengine/engine/internal/entries"
)

// Op discriminates the patch operation.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Patch is one atomic mutation of the canonical entry sequence.
//
// An Add at index n >= current length appends; a Replace at index n <
// current length updates in place; a Remove at index n deletes. Patches
// must be applied in order; no cross-patch reordering is permitted.
type Patch struct {
	Op    Op            `json:"op"`
	Index int           `json:"index"`
	Entry *entries.Entry `json:"entry,omitempty"`
}

// Add builds an Add patch at the given index.
func Add(index int, entry entries.Entry) Patch {
	return Patch{Op: OpAdd, Index: index, Entry: &entry}
}

// Replace builds a Replace patch at the given index.
func Replace(index int, entry entries.Entry) Patch {
	return Patch{Op: OpReplace, Index: index, Entry: &entry}
}

// Remove builds a Remove patch at the given index.
func Remove(index int) Patch {
	return Patch{Op: OpRemove, Index: index}
}

// JSONPointerPath renders the RFC-6902 path for this patch's operation,
// e.g. "/entries/3".
func (p Patch) JSONPointerPath() string {
	return fmt.Sprintf("/entries/%d", p.Index)
}

// MarshalRFC6902 renders the patch as a single-element RFC-6902 JSON patch
// document. Concrete wire encodings beyond this are the implementer's
// choice; this is the reference encoding.
func (p Patch) MarshalRFC6902() ([]byte, error) {
	doc := []map[string]any{
		{
			"op":   string(p.Op),
			"path": p.JSONPointerPath(),
		},
	}
	if p.Entry != nil {
		doc[0]["value"] = p.Entry
	}
	return json.Marshal(doc)
}

// Conversation replays a patch sequence into a slice of entries. It is a
// test/debugging aid for consumers validating the three-operation
// semantics; the engine itself never applies its own patches.
type Conversation struct {
	Entries []*entries.Entry
}

// Apply applies a single patch to the conversation, following the same
// index semantics normalizers rely on: Add at index == len(Entries)
// appends; Replace at index < len(Entries) overwrites in place; Remove at
// index < len(Entries) sets the slot to nil so later indices are
// unaffected (holes are tolerated by consumers per the dense-index
// invariant).
func (c *Conversation) Apply(p Patch) error {
	switch p.Op {
	case OpAdd:
		if p.Index != len(c.Entries) {
			return fmt.Errorf("patch: add at index %d, expected %d", p.Index, len(c.Entries))
		}
		c.Entries = append(c.Entries, p.Entry)
	case OpReplace:
		if p.Index < 0 || p.Index >= len(c.Entries) {
			return fmt.Errorf("patch: replace at out-of-range index %d", p.Index)
		}
		c.Entries[p.Index] = p.Entry
	case OpRemove:
		if p.Index < 0 || p.Index >= len(c.Entries) {
			return fmt.Errorf("patch: remove at out-of-range index %d", p.Index)
		}
		c.Entries[p.Index] = nil
	default:
		return fmt.Errorf("patch: unknown op %q", p.Op)
	}
	return nil
}

// ApplyAll applies a sequence of patches in order, stopping at the first
// error.
func (c *Conversation) ApplyAll(patches []Patch) error {
	for i, p := range patches {
		if err := c.Apply(p); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return nil
}
