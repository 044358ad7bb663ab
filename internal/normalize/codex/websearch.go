package codex

import "github.com/convengine/engine/internal/entries"

func (n *Normalizer) webSearchEntry(ws *webSearchState) entries.Entry {
	action := entries.NewWebFetchAction(ws.query)
	e := entries.NewToolUse("web_search", "Search the web for "+ws.query, action)
	if ws.status == "success" {
		e = e.WithStatus(entries.StatusSuccess)
	} else {
		e = e.WithStatus(entries.StatusCreated)
	}
	return e
}

func (n *Normalizer) handleWebSearchBegin(ev EventMsg) {
	ws := &webSearchState{query: "(searching…)", status: "created"}
	ws.index = n.add(n.webSearchEntry(ws))
	n.webSearches[ev.CallID] = ws
}

func (n *Normalizer) handleWebSearchEnd(ev EventMsg) {
	ws, ok := n.webSearches[ev.CallID]
	if !ok {
		return
	}
	ws.query = ev.Query
	ws.status = "success"
	n.replace(ws.index, n.webSearchEntry(ws))
	delete(n.webSearches, ev.CallID)
}
