package approval

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically logs approval requests that have been pending
// longer than their own timeout would allow, as a diagnostic backstop:
// each RequestToolApproval call already resolves itself via its own
// timer, so the sweep never resolves a request itself, it only surfaces
// ones that appear stuck (e.g. a goroutine leak) for operators to notice.
type Sweeper struct {
	cron   *cron.Cron
	pend   func() []Request
	log    *slog.Logger
	entryID cron.EntryID
}

// NewSweeper builds a sweeper over the given pending-request accessor
// (typically MemoryService.Pending) that runs on the given cron schedule,
// e.g. "@every 30s".
func NewSweeper(pending func() []Request, log *slog.Logger, schedule string) (*Sweeper, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Sweeper{
		cron: cron.New(),
		pend: pending,
		log:  log,
	}
	id, err := s.cron.AddFunc(schedule, s.sweep)
	if err != nil {
		return nil, err
	}
	s.entryID = id
	return s, nil
}

func (s *Sweeper) sweep() {
	now := time.Now()
	for _, req := range s.pend() {
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		if now.Sub(req.CreatedAt) > timeout+10*time.Second {
			s.log.Warn("approval request pending past its own timeout",
				"call_id", req.CallID, "tool", req.ToolName, "age", now.Sub(req.CreatedAt))
		}
	}
}

// Start runs the cron scheduler in the background.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop stops the scheduler and waits for any running job to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }
