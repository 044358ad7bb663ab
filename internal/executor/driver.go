package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/convengine/engine/internal/observability"
	"github.com/convengine/engine/internal/retry"
	"github.com/convengine/engine/internal/store"
)

// Config bounds one driver's behavior across every invocation it spawns:
// a default per-run timeout, the Claude approval backend's port and
// timeout (for settings.json), and the base directory Copilot's log
// watcher creates its scratch directories under.
type Config struct {
	DefaultTimeout         time.Duration
	ApprovalTimeoutSeconds int
	BackendPort            int
	LogBaseDir             string

	// SpawnRetry governs retrying a Spawn call that fails for
	// infrastructure reasons (pipe creation, cmd.Start). Invocation
	// validation failures (unsafe command/args) are marked permanent by
	// Spawn itself and never retried regardless of this config.
	SpawnRetry retry.Config

	// SpawnsPerSecond rate-limits how often this driver starts new
	// processes; zero disables limiting. SpawnBurst sets the token
	// bucket's burst size (defaults to 1 when SpawnsPerSecond > 0).
	SpawnsPerSecond float64
	SpawnBurst      int

	// Metrics and Tracer are optional; when set, every Run is counted,
	// timed, and given a span.
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// DefaultConfig mirrors the spec's default approval window (300s) plus a
// generous default run ceiling; callers needing something tighter
// override per field.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:         30 * time.Minute,
		ApprovalTimeoutSeconds: 300,
		BackendPort:            0,
		LogBaseDir:             "/tmp/convengine",
		SpawnRetry: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Factor:       2.0,
			Jitter:       true,
		},
	}
}

// Driver spawns agent processes for a fixed Config, performing whatever
// family-specific onboarding (Claude hook injection, Copilot log
// watching) a run needs before the child's own stdout starts flowing.
type Driver struct {
	Config  Config
	Log     *slog.Logger
	limiter *rate.Limiter
}

// NewDriver builds a Driver from cfg, defaulting zero fields from
// DefaultConfig.
func NewDriver(cfg Config, log *slog.Logger) *Driver {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if cfg.ApprovalTimeoutSeconds <= 0 {
		cfg.ApprovalTimeoutSeconds = DefaultConfig().ApprovalTimeoutSeconds
	}
	if cfg.LogBaseDir == "" {
		cfg.LogBaseDir = DefaultConfig().LogBaseDir
	}
	if cfg.SpawnRetry.MaxAttempts <= 0 {
		cfg.SpawnRetry = DefaultConfig().SpawnRetry
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Driver{Config: cfg, Log: log}
	if cfg.SpawnsPerSecond > 0 {
		burst := cfg.SpawnBurst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.SpawnsPerSecond), burst)
	}
	return d
}

// Run performs family-specific onboarding for opts, spawns the child via
// Spawn bounded by d.Config.DefaultTimeout (unless ctx already carries a
// tighter deadline), and returns the live Process. The caller owns
// calling Process.Wait.
func (d *Driver) Run(ctx context.Context, opts Options, idx *store.EntryIndexProvider, sink *store.Store) (*Process, error) {
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, d.Config.DefaultTimeout)
	}

	var span trace.Span
	if d.Config.Tracer != nil {
		ctx, span = d.Config.Tracer.SpawnSpan(ctx, string(opts.Family), opts.WorkingDir)
	}

	switch opts.Family {
	case FamilyClaude:
		if err := d.prepareClaude(opts); err != nil {
			d.abort(cancel, span, err)
			return nil, err
		}
	case FamilyCopilot:
		logDir, err := CreateTempLogDir(d.Config.LogBaseDir)
		if err != nil {
			d.abort(cancel, span, err)
			return nil, err
		}
		opts.Overrides.ExtraArgs = append(opts.Overrides.ExtraArgs, "--log-dir", logDir)

		proc, err := d.spawnRateLimited(ctx, opts, idx, sink)
		if err != nil {
			d.abort(cancel, span, err)
			return nil, err
		}
		proc.cancel = cancel
		proc.Instrument(d.Config.Metrics, span)
		go d.watchCopilotSession(ctx, logDir, sink)
		return proc, nil
	}

	proc, err := d.spawnRateLimited(ctx, opts, idx, sink)
	if err != nil {
		d.abort(cancel, span, err)
		return nil, err
	}
	proc.cancel = cancel
	proc.Instrument(d.Config.Metrics, span)
	return proc, nil
}

// abort releases the derived context and closes out a started span when a
// Run attempt fails before a Process exists to carry them.
func (d *Driver) abort(cancel context.CancelFunc, span trace.Span, err error) {
	if cancel != nil {
		cancel()
	}
	if span != nil {
		observability.EndWithError(span, err)
	}
}

// spawnRateLimited waits for the driver's rate limiter (if configured) and
// retries transient Spawn failures per Config.SpawnRetry, recording a
// spawn-attempt metric per try when Config.Metrics is set.
func (d *Driver) spawnRateLimited(ctx context.Context, opts Options, idx *store.EntryIndexProvider, sink *store.Store) (*Process, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("executor: rate limiter: %w", err)
		}
	}

	proc, result := retry.DoWithValue(ctx, d.Config.SpawnRetry, func() (*Process, error) {
		start := time.Now()
		p, err := Spawn(ctx, opts, idx, sink, d.Log)
		if d.Config.Metrics != nil {
			d.Config.Metrics.ObserveSpawn(string(opts.Family), start, err)
		}
		return p, err
	})
	if result.Err != nil {
		return nil, fmt.Errorf("executor: spawn %s: %w", opts.Family, result.Err)
	}
	return proc, nil
}

func (d *Driver) prepareClaude(opts Options) error {
	if opts.WorkingDir == "" {
		return fmt.Errorf("executor: claude invocation requires a working directory")
	}
	if _, err := WriteClaudeHooks(opts.WorkingDir); err != nil {
		return err
	}
	_, err := SettingsJSON(opts.PermissionMode == "plan", d.Config.BackendPort, d.Config.ApprovalTimeoutSeconds)
	return err
}

func (d *Driver) watchCopilotSession(ctx context.Context, logDir string, sink *store.Store) {
	id, err := WatchSessionID(ctx, logDir)
	if err != nil {
		d.Log.Warn("executor: copilot session id not discovered", "error", err)
		return
	}
	sink.PushSessionID(id)
	sink.PushStdout(FormatSessionMarker(id))
}
