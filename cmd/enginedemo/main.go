// Command enginedemo wires the whole engine together end to end: it loads
// config, builds the logger/metrics/tracer trio, starts the approval
// service with schema validation and its stale-request sweep, spawns a
// single agent run through the driver, and streams the run's records to
// stdout until the process exits. It is the smallest program that
// exercises every wired subsystem, the way the teacher's own cmd/server
// ties its packages together behind a single main.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/convengine/engine/internal/approval"
	"github.com/convengine/engine/internal/config"
	"github.com/convengine/engine/internal/executor"
	"github.com/convengine/engine/internal/observability"
	"github.com/convengine/engine/internal/store"
)

const bashInputSchema = `{
  "type": "object",
  "properties": {"command": {"type": "string", "minLength": 1}},
  "required": ["command"],
  "additionalProperties": false
}`

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file (optional; built-in defaults apply otherwise)")
		family     = flag.String("family", "freeform", "agent family: claude|codex|copilot|freeform")
		prompt     = flag.String("prompt", "say hello", "prompt piped to the agent's stdin")
		workingDir = flag.String("dir", ".", "agent working directory")
	)
	flag.Parse()

	if err := run(*configPath, *family, *prompt, *workingDir); err != nil {
		fmt.Fprintln(os.Stderr, "enginedemo:", err)
		os.Exit(1)
	}
}

func run(configPath, family, prompt, workingDir string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log := observability.NewLogger(cfg.Logging)
	metrics := observability.NewMetrics()
	tracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Warn("enginedemo: tracer shutdown", "error", err)
		}
	}()

	sink := store.NewStoreWithBuffer(cfg.Store.SubscriberBufferSize)
	idx := store.NewEntryIndexProvider()

	memSvc := approval.NewMemoryService()
	validated := approval.NewValidatingService(memSvc)
	if err := validated.RegisterSchema("bash", bashInputSchema); err != nil {
		return fmt.Errorf("enginedemo: register approval schema: %w", err)
	}

	sweeper, err := approval.NewSweeper(memSvc.Pending, log, cfg.Approval.SweepSchedule)
	if err != nil {
		return fmt.Errorf("enginedemo: build sweeper: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	execCfg := cfg.ToExecutorConfig()
	execCfg.Metrics = metrics
	execCfg.Tracer = tracer
	driver := executor.NewDriver(execCfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := executor.Options{
		Family:      executor.Family(family),
		WorkingDir:  workingDir,
		Prompt:      prompt,
		Approvals:   validated,
		AutoApprove: cfg.Approval.AutoApprove,
	}

	proc, err := driver.Run(ctx, opts, idx, sink)
	if err != nil {
		return fmt.Errorf("enginedemo: run: %w", err)
	}

	go streamRecords(ctx, sink, log)

	if err := proc.Wait(); err != nil {
		return fmt.Errorf("enginedemo: wait: %w", err)
	}
	return nil
}

// streamRecords prints every record pushed to sink until ctx is cancelled,
// the simplest possible consumer of Store.HistoryPlusStream.
func streamRecords(ctx context.Context, sink *store.Store, log *slog.Logger) {
	sub := sink.HistoryPlusStream(ctx)
	defer sub.Unsubscribe()

	for _, rec := range sub.History {
		log.Info("enginedemo: record", "kind", rec.Kind)
	}
	for rec := range sub.Live {
		log.Info("enginedemo: record", "kind", rec.Kind)
	}
}
