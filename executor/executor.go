// Package executor implements the Executor finite-state machine: one
// instance per worker slot, pulling tasks from the local inbound queue,
// spawning a child shell process per task, and pushing finished tasks
// onto the local outbound queue.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shellq/client/errtag"
	"github.com/shellq/client/fsm"
	"github.com/shellq/client/metrics"
	"github.com/shellq/client/queue"
	"github.com/shellq/client/task"
)

const (
	getLocalTimeout = time.Second
	waitPollTimeout = 2 * time.Second
	putLocalTimeout = 2 * time.Second
)

const (
	stateStart fsm.State = iota
	stateGetLocal
	stateStartTask
	stateWaitTask
	statePutLocal
	stateFinalize
	stateHalt
)

// Config configures one Executor slot.
type Config struct {
	// Slot identifies this executor among its siblings (1..N), used in
	// logs and to tag errors returned from Run.
	Slot int

	// Template is the command-line pattern substituted with each task's
	// raw argument string at every `{}` occurrence (see RenderCommand).
	Template string

	// KillGrace, when positive, sends SIGTERM to a still-running child
	// once this long has passed since its task started. Zero disables
	// escalation.
	KillGrace time.Duration
}

// RenderCommand substitutes every `{}` occurrence in template with args.
func RenderCommand(template, args string) string {
	return strings.ReplaceAll(template, "{}", args)
}

// Executor drives one worker slot. Its fields are mutated only by the
// goroutine that calls Run.
type Executor struct {
	cfg Config

	inbound  *queue.Queue[*task.Task]
	outbound *queue.Queue[*task.Task]
	log      *logrus.Entry
	metrics  metrics.Provider

	clientHost string

	current *task.Task
	cmd     *exec.Cmd
	waitCh  chan waitResult

	err error
}

type waitResult struct {
	status int
	err    error
}

// New constructs an Executor bound to inbound/outbound.
func New(cfg Config, inbound, outbound *queue.Queue[*task.Task], log *logrus.Entry, mp metrics.Provider) *Executor {
	host, _ := os.Hostname()
	return &Executor{cfg: cfg, inbound: inbound, outbound: outbound, log: log, metrics: mp, clientHost: host}
}

// Run drives the Executor until it receives the null sentinel on
// inbound or ctx is cancelled. A non-nil error indicates an unexpected
// internal failure; individual task spawn/exit failures are never
// returned here. They are recorded on the task and forwarded to
// outbound instead.
func (e *Executor) Run(ctx context.Context) error {
	table := fsm.Table{
		stateStart:     e.start,
		stateGetLocal:  e.getLocal,
		stateStartTask: e.startTask,
		stateWaitTask:  e.waitTask,
		statePutLocal:  e.putLocal,
		stateFinalize:  e.finalize,
	}
	fsm.Run(ctx, table, stateStart, stateHalt)
	return e.err
}

func (e *Executor) start(context.Context) fsm.State {
	e.log.Debug("started executor")
	return stateGetLocal
}

func (e *Executor) getLocal(ctx context.Context) fsm.State {
	t, err := e.inbound.Get(ctx, getLocalTimeout)
	switch {
	case errors.Is(err, queue.ErrEmpty):
		return stateGetLocal
	case err != nil:
		e.err = errtag.New(err, "", e.cfg.Slot)
		return stateFinalize
	case t == nil:
		return stateFinalize
	default:
		e.current = t
		return stateStartTask
	}
}

func (e *Executor) startTask(ctx context.Context) fsm.State {
	t := e.current
	t.Command = RenderCommand(e.cfg.Template, t.Args)
	t.StartTime = time.Now()
	t.ClientHost = e.clientHost

	e.log.WithField("task_id", t.ID).Trace("running task")

	cmd := exec.Command("sh", "-c", t.Command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "TASK_ID="+t.ID, "TASK_ARGS="+t.Args)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	waitCh := make(chan waitResult, 1)
	if err := cmd.Start(); err != nil {
		// Spawn failure: not fatal to the client. Record the failure
		// and forward the task as if it had exited abnormally.
		waitCh <- waitResult{status: 1, err: fmt.Errorf("spawn: %w", err)}
	} else {
		go func() {
			err := cmd.Wait()
			waitCh <- waitResult{status: exitStatus(err), err: nil}
		}()
	}

	e.cmd = cmd
	e.waitCh = waitCh
	e.metrics.UpDownCounter("executor_tasks_inflight").Add(1)
	return stateWaitTask
}

func (e *Executor) waitTask(ctx context.Context) fsm.State {
	timer := time.NewTimer(waitPollTimeout)
	defer timer.Stop()

	select {
	case res := <-e.waitCh:
		t := e.current
		t.ExitStatus = res.status
		t.CompletionTime = time.Now()
		e.metrics.UpDownCounter("executor_tasks_inflight").Add(-1)
		e.metrics.Histogram("executor_task_duration_seconds").Record(t.CompletionTime.Sub(t.StartTime).Seconds())
		if res.err != nil {
			e.log.WithField("task_id", t.ID).WithError(res.err).Warn("task spawn failed")
		} else {
			e.log.WithField("task_id", t.ID).Trace("task completed")
		}
		return statePutLocal
	case <-timer.C:
		if e.cfg.KillGrace > 0 && time.Since(e.current.StartTime) >= e.cfg.KillGrace {
			_ = e.cmd.Process.Signal(syscall.SIGTERM)
		}
		return stateWaitTask
	}
}

func (e *Executor) putLocal(ctx context.Context) fsm.State {
	err := e.outbound.Put(ctx, e.current, putLocalTimeout)
	switch {
	case errors.Is(err, queue.ErrFull):
		return statePutLocal
	case err != nil:
		e.err = errtag.New(err, e.current.ID, e.cfg.Slot)
		return stateFinalize
	default:
		e.metrics.Counter("executor_tasks_completed").Add(1)
		return stateGetLocal
	}
}

func (e *Executor) finalize(context.Context) fsm.State {
	e.log.Debug("stopping executor")
	return stateHalt
}

// exitStatus extracts a process exit code from the error os/exec.Cmd.Wait
// returns, defaulting to 0 on success and 1 for exits that carry no
// observable status (e.g. the process was signaled).
func exitStatus(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return 1
}
