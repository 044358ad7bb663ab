package executor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/convengine/engine/internal/codexrpc"
	"github.com/convengine/engine/internal/engineerr"
	"github.com/convengine/engine/internal/normalize/claude"
	"github.com/convengine/engine/internal/normalize/codex"
	"github.com/convengine/engine/internal/normalize/plaintext"
	"github.com/convengine/engine/internal/normalize/stderr"
	"github.com/convengine/engine/internal/observability"
	"github.com/convengine/engine/internal/retry"
	"github.com/convengine/engine/internal/store"
)

// Process holds the live state of one spawned agent: its underlying
// command, the message store it is writing into, and the wait group the
// driver joins before reporting the run finished.
type Process struct {
	Log *slog.Logger

	cmd  *exec.Cmd
	sink *store.Store
	idx  *store.EntryIndexProvider

	stdin io.WriteCloser

	rpc *codexrpc.AppServerClient

	cancel context.CancelFunc

	family    Family
	startedAt time.Time
	metrics   *observability.Metrics
	span      trace.Span

	wg sync.WaitGroup

	mu      sync.Mutex
	waitErr error
	waited  bool
}

// Instrument attaches the driver's metrics registry and the span covering
// this run, so Wait can record exit-code/duration observations and close
// the span when the child actually terminates. Both are optional; a
// Process spawned directly via Spawn (as the executor package's own tests
// do) works the same with neither set.
func (p *Process) Instrument(m *observability.Metrics, span trace.Span) {
	p.metrics = m
	p.span = span
}

// Spawn builds the invocation for opts, starts the child process with
// piped stdio, writes the prompt to stdin and closes it, and wires the
// child's stdout/stderr into sink through the family's normalizer. The
// returned Process's Wait blocks until the child exits and all reader
// goroutines have drained.
func Spawn(ctx context.Context, opts Options, idx *store.EntryIndexProvider, sink *store.Store, log *slog.Logger) (*Process, error) {
	if log == nil {
		log = slog.Default()
	}

	command, args, err := BuildInvocation(opts)
	if err != nil {
		// A rejected invocation (unsafe command/arguments, unknown family)
		// will fail identically on every retry, so mark it permanent for
		// any retry.Do wrapping this call.
		return nil, retry.Permanent(engineerr.Wrap(engineerr.KindSpawnFailure, "build invocation", err))
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = opts.WorkingDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindSpawnFailure, "stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindSpawnFailure, "stdout pipe", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindSpawnFailure, "stderr pipe", err)
	}

	p := &Process{Log: log, cmd: cmd, sink: sink, idx: idx, stdin: stdin, family: opts.Family, startedAt: time.Now()}

	if err := cmd.Start(); err != nil {
		return nil, engineerr.Wrap(engineerr.KindSpawnFailure, fmt.Sprintf("start %s", command), err)
	}

	p.wg.Add(2)
	go p.pumpStdout(opts, stdout)
	go p.pumpStderr(stderrPipe)

	// Codex speaks JSON-RPC over this same stdin for the life of the
	// conversation; closing it here would sever that channel. Its prompt
	// is instead delivered as a sendUserMessage call once the caller has
	// the AppServerClient (see RPC()) and a conversation id.
	if opts.Family == FamilyCodex {
		return p, nil
	}

	if opts.Prompt != "" {
		if _, err := io.WriteString(stdin, opts.Prompt); err != nil {
			log.Warn("executor: failed writing prompt to stdin", "error", err)
		}
	}
	if err := stdin.Close(); err != nil {
		log.Warn("executor: failed closing stdin", "error", err)
	}

	return p, nil
}

// Stdin exposes the child's stdin for follow-up writes (an additional
// turn sent without restarting the process), used by agent families whose
// protocol stays open across turns.
func (p *Process) Stdin() io.WriteCloser { return p.stdin }

// RPC returns the JSON-RPC client wired to this process's stdin/stdout,
// non-nil only for FamilyCodex runs. It may briefly return nil right
// after Spawn returns, until the stdout pump goroutine finishes wiring
// the peer.
func (p *Process) RPC() *codexrpc.AppServerClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rpc
}

// Wait blocks for the child to exit and for both pump goroutines to
// finish pushing their tail into the store, then pushes a Finished record
// carrying the exit code.
func (p *Process) Wait() error {
	p.wg.Wait()

	p.mu.Lock()
	if !p.waited {
		p.waitErr = p.cmd.Wait()
		p.waited = true
	}
	err := p.waitErr
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		code = -1
	}
	p.sink.PushFinished(&code)

	if p.metrics != nil {
		p.metrics.ObserveExit(string(p.family), code)
		p.metrics.RunDuration.WithLabelValues(string(p.family)).Observe(time.Since(p.startedAt).Seconds())
	}
	if p.span != nil {
		observability.EndWithError(p.span, err)
	}

	return err
}

func (p *Process) pumpStdout(opts Options, r io.Reader) {
	defer p.wg.Done()

	var feed func(line string)
	switch opts.Family {
	case FamilyClaude:
		n := claude.New(p.idx, p.sink, opts.WorkingDir, p.Log)
		feed = n.FeedLine
	case FamilyCodex:
		n := codex.New(p.idx, p.sink, p.Log)
		peer := codexrpc.NewPeer(p.stdin)
		rpc := codexrpc.NewAppServerClient(peer, opts.Approvals, opts.AutoApprove, p.Log)
		n.OnTurnAborted = rpc.FlushOnTurnAborted
		p.mu.Lock()
		p.rpc = rpc
		p.mu.Unlock()
		peer.OnNotification = func(note codexrpc.Notification) {
			var ev codex.EventMsg
			if err := json.Unmarshal(note.Params, &ev); err != nil {
				p.Log.Debug("executor: codex event not decodable",
					"error", engineerr.Wrap(engineerr.KindDecodeFailure, "codex event params", err))
				if p.metrics != nil {
					p.metrics.NormalizeErrors.WithLabelValues(string(FamilyCodex), string(engineerr.KindDecodeFailure)).Inc()
				}
				return
			}
			n.HandleEvent(ev)
		}
		feed = func(line string) {
			if err := peer.HandleLine([]byte(line)); err != nil {
				p.Log.Debug("executor: codex line not a peer frame",
					"error", engineerr.Wrap(engineerr.KindDecodeFailure, "codex rpc line", err))
				if p.metrics != nil {
					p.metrics.NormalizeErrors.WithLabelValues(string(FamilyCodex), string(engineerr.KindDecodeFailure)).Inc()
				}
			}
		}
	case FamilyCopilot:
		pn := plaintext.New(p.idx, p.sink, nil, StripSessionMarker)
		feed = func(line string) { pn.Feed(line + "\n") }
	default:
		pn := plaintext.New(p.idx, p.sink, nil, nil)
		feed = func(line string) { pn.Feed(line + "\n") }
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		p.sink.PushStdout(line)
		feed(line)
	}
	if err := scanner.Err(); err != nil {
		p.Log.Warn("executor: stdout scan error", "error", err)
	}
}

func (p *Process) pumpStderr(r io.Reader) {
	defer p.wg.Done()

	n := stderr.New(p.idx, p.sink, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		p.sink.PushStderr(line)
		n.Feed(line + "\n")
	}
	if err := scanner.Err(); err != nil {
		p.Log.Warn("executor: stderr scan error", "error", err)
	}
}
