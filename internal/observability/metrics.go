package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the engine's own operational counters: how many agent
// processes were spawned and how they exited, how approvals were resolved,
// and how many patches each normalizer emitted. Built against its own
// Registry rather than the global one, so a Driver can be constructed more
// than once per test process without a duplicate-registration panic.
//
// Usage:
//
//	m := observability.NewMetrics()
//	m.SpawnTotal.WithLabelValues("claude").Inc()
//	defer m.SpawnDuration.WithLabelValues("claude").Observe(time.Since(start).Seconds())
type Metrics struct {
	Registry *prometheus.Registry

	// SpawnTotal counts spawn attempts. Labels: family, outcome (ok|error).
	SpawnTotal *prometheus.CounterVec

	// SpawnDuration measures time from Spawn call to the child process
	// starting to run. Labels: family.
	SpawnDuration *prometheus.HistogramVec

	// RunDuration measures a full driver Run, start to Wait returning.
	// Labels: family.
	RunDuration *prometheus.HistogramVec

	// ExitCode counts process exits by family and exit code.
	ExitCode *prometheus.CounterVec

	// ApprovalTotal counts resolved approval requests. Labels: tool,
	// status (approved|approved_for_session|denied|timed_out).
	ApprovalTotal *prometheus.CounterVec

	// ApprovalWait measures time spent waiting for an approval decision.
	// Labels: tool.
	ApprovalWait *prometheus.HistogramVec

	// PatchesEmitted counts patch operations a normalizer produced.
	// Labels: family, op (add|replace|remove).
	PatchesEmitted *prometheus.CounterVec

	// NormalizeErrors counts taxonomy-classified normalizer failures.
	// Labels: family, kind (see internal/engineerr.Kind).
	NormalizeErrors *prometheus.CounterVec

	// ActiveRuns is a gauge of currently-live driver Runs. Labels: family.
	ActiveRuns *prometheus.GaugeVec
}

// NewMetrics registers the engine's collectors against a fresh Registry and
// returns the bundle.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		SpawnTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convengine_spawn_total",
				Help: "Total number of agent process spawn attempts by family and outcome",
			},
			[]string{"family", "outcome"},
		),

		SpawnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convengine_spawn_duration_seconds",
				Help:    "Time to build and start an agent process",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"family"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convengine_run_duration_seconds",
				Help:    "Full duration of a driver Run from spawn to exit",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"family"},
		),

		ExitCode: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convengine_exit_code_total",
				Help: "Agent process exits by family and exit code",
			},
			[]string{"family", "code"},
		),

		ApprovalTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convengine_approval_total",
				Help: "Resolved tool-approval requests by tool and status",
			},
			[]string{"tool", "status"},
		),

		ApprovalWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convengine_approval_wait_seconds",
				Help:    "Time spent waiting for an approval decision",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"tool"},
		),

		PatchesEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convengine_patches_emitted_total",
				Help: "Patch operations emitted by a normalizer",
			},
			[]string{"family", "op"},
		),

		NormalizeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convengine_normalize_errors_total",
				Help: "Taxonomy-classified normalizer failures",
			},
			[]string{"family", "kind"},
		),

		ActiveRuns: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "convengine_active_runs",
				Help: "Currently live driver Runs",
			},
			[]string{"family"},
		),
	}
}

// ObserveSpawn records a spawn attempt's outcome and duration.
func (m *Metrics) ObserveSpawn(family string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SpawnTotal.WithLabelValues(family, outcome).Inc()
	m.SpawnDuration.WithLabelValues(family).Observe(time.Since(start).Seconds())
}

// ObserveExit records a process's terminal exit code.
func (m *Metrics) ObserveExit(family string, code int) {
	m.ExitCode.WithLabelValues(family, strconv.Itoa(code)).Inc()
}

// ObserveApproval records a resolved approval's wait time and status.
func (m *Metrics) ObserveApproval(tool, status string, wait time.Duration) {
	m.ApprovalTotal.WithLabelValues(tool, status).Inc()
	m.ApprovalWait.WithLabelValues(tool).Observe(wait.Seconds())
}
