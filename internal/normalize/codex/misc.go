package codex

import "github.com/convengine/engine/internal/entries"

func (n *Normalizer) handleViewImage(ev EventMsg) {
	action := entries.NewFileReadAction(ev.Path)
	e := entries.NewToolUse("view_image", "View "+ev.Path, action).WithStatus(entries.StatusSuccess)
	n.add(e)
}

func (n *Normalizer) handlePlanUpdate(ev EventMsg) {
	todos := make([]entries.TodoItem, 0, len(ev.Plan))
	for _, p := range ev.Plan {
		todos = append(todos, entries.TodoItem{Content: p.Step, Status: p.Status})
	}
	action := entries.NewTodoManagementAction(todos, "update")
	n.add(entries.NewToolUse("plan_update", ev.Explanation, action).WithStatus(entries.StatusSuccess))
}
