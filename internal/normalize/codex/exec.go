package codex

import (
	"github.com/convengine/engine/internal/entries"
)

func (n *Normalizer) commandEntry(cs *commandState) entries.Entry {
	var result *entries.CommandRunResult
	if cs.exitCode != nil {
		success := *cs.exitCode == 0
		output := cs.formattedOutput()
		result = &entries.CommandRunResult{
			ExitStatus: &entries.ExitStatus{Code: cs.exitCode, Success: &success},
			Output:     &output,
		}
	} else if cs.stdout.Len() > 0 || cs.stderr.Len() > 0 {
		output := cs.formattedOutput()
		result = &entries.CommandRunResult{Output: &output}
	}

	action := entries.NewCommandRunAction(cs.command, result)
	e := entries.NewToolUse("bash", "`"+cs.command+"`", action)
	switch cs.status {
	case "success":
		e = e.WithStatus(entries.StatusSuccess)
	case "failed":
		e = e.WithStatus(entries.StatusFailed)
	default:
		e = e.WithStatus(entries.StatusCreated)
	}
	return e
}

func (n *Normalizer) handleExecApprovalRequest(ev EventMsg) {
	cs, ok := n.commands[ev.CallID]
	if !ok {
		cs = &commandState{command: ev.Command, status: "created"}
		cs.index = n.add(n.commandEntry(cs))
		n.commands[ev.CallID] = cs
	}
	cs.awaitingApproval = true
	n.replace(cs.index, n.commandEntry(cs))
}

func (n *Normalizer) handleExecCommandBegin(ev EventMsg) {
	cs, ok := n.commands[ev.CallID]
	if !ok {
		cs = &commandState{command: ev.Command, status: "created"}
		cs.index = n.add(n.commandEntry(cs))
		n.commands[ev.CallID] = cs
		return
	}
	cs.command = ev.Command
	cs.awaitingApproval = false
	n.replace(cs.index, n.commandEntry(cs))
}

func (n *Normalizer) handleExecCommandOutputDelta(ev EventMsg) {
	cs, ok := n.commands[ev.CallID]
	if !ok {
		return
	}
	if ev.Stream == "stderr" {
		cs.stderr.WriteString(ev.Chunk)
	} else {
		cs.stdout.WriteString(ev.Chunk)
	}
	n.replace(cs.index, n.commandEntry(cs))
}

func (n *Normalizer) handleExecCommandEnd(ev EventMsg) {
	cs, ok := n.commands[ev.CallID]
	if !ok {
		return
	}
	cs.exitCode = ev.ExitCode
	if ev.ExitCode != nil && *ev.ExitCode == 0 {
		cs.status = "success"
	} else {
		cs.status = "failed"
	}
	n.replace(cs.index, n.commandEntry(cs))
	delete(n.commands, ev.CallID)
}
