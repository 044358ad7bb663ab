package codex

import (
	"github.com/convengine/engine/internal/entries"
	"github.com/convengine/engine/internal/patch"
)

func removePatch(index int) patch.Patch { return patch.Remove(index) }

func normalizeFileChange(pf PatchFile) entries.FileChange {
	switch pf.Kind {
	case "add":
		return entries.NewFileChangeWrite(pf.UnifiedDiff)
	case "delete":
		return entries.NewFileChangeDelete()
	default: // "update"
		return entries.NewFileChangeEdit(pf.UnifiedDiff, false)
	}
}

func (n *Normalizer) patchFileEntry(pf PatchFile, awaitingApproval bool, status string) entries.Entry {
	change := normalizeFileChange(pf)
	var changes []entries.FileChange
	if pf.MovePath != "" {
		changes = append(changes, entries.NewFileChangeRename(pf.MovePath))
	}
	changes = append(changes, change)

	action := entries.NewFileEditAction(pf.Path, changes)
	e := entries.NewToolUse("apply_patch", "Edit "+pf.Path, action)
	switch status {
	case "success":
		e = e.WithStatus(entries.StatusSuccess)
	case "failed":
		e = e.WithStatus(entries.StatusFailed)
	default:
		e = e.WithStatus(entries.StatusCreated)
	}
	return e
}

// handleApplyPatchApprovalRequest removes any prior preview entries for
// this call_id and adds fresh ones with awaiting_approval=true, per path.
func (n *Normalizer) handleApplyPatchApprovalRequest(ev EventMsg) {
	if ps, ok := n.patches[ev.CallID]; ok {
		for _, e := range ps.entries {
			n.sink.PushPatch(removePatch(e.index))
		}
	}

	ps := &patchState{}
	for _, pf := range ev.Patches {
		e := n.patchFileEntry(pf, true, "created")
		idx := n.add(e)
		ps.entries = append(ps.entries, &patchEntryState{index: idx, path: pf.Path, status: "created", awaitingApproval: true})
	}
	n.patches[ev.CallID] = ps
}

// handlePatchApplyBegin moves prior approval-preview entries to
// Created/awaiting_approval=false and adds any new paths observed in
// this begin event that weren't already previewed.
func (n *Normalizer) handlePatchApplyBegin(ev EventMsg) {
	ps, ok := n.patches[ev.CallID]
	if !ok {
		ps = &patchState{}
		n.patches[ev.CallID] = ps
	}

	seen := make(map[string]bool, len(ps.entries))
	for _, e := range ps.entries {
		seen[e.path] = true
		e.awaitingApproval = false
		e.status = "created"
	}
	for _, pf := range ev.Patches {
		if seen[pf.Path] {
			continue
		}
		entry := n.patchFileEntry(pf, false, "created")
		idx := n.add(entry)
		ps.entries = append(ps.entries, &patchEntryState{index: idx, path: pf.Path, status: "created"})
	}

	n.replaceAllPatchEntries(ps, ev.Patches)
}

// replaceAllPatchEntries re-renders every entry in ps against the current
// patch-file list so the awaiting_approval flag flip from begin is
// actually reflected in the store.
func (n *Normalizer) replaceAllPatchEntries(ps *patchState, files []PatchFile) {
	byPath := make(map[string]PatchFile, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}
	for _, e := range ps.entries {
		pf, ok := byPath[e.path]
		if !ok {
			pf = PatchFile{Path: e.path}
		}
		n.replace(e.index, n.patchFileEntry(pf, e.awaitingApproval, e.status))
	}
}

// handlePatchApplyEnd sets each entry's status to Success or Failed per
// the call's overall success flag.
func (n *Normalizer) handlePatchApplyEnd(ev EventMsg) {
	ps, ok := n.patches[ev.CallID]
	if !ok {
		return
	}
	status := "failed"
	if ev.Success != nil && *ev.Success {
		status = "success"
	}
	for _, e := range ps.entries {
		e.status = status
		n.replace(e.index, n.patchFileEntry(PatchFile{Path: e.path}, false, status))
	}
	delete(n.patches, ev.CallID)
}
