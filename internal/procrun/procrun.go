package procrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var (
	ErrFailed   = errors.New("process failed")
	ErrTimedOut = errors.New("process timed out")
)

type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed out"
	}
	return "unknown"
}

// CommandSpec describes one external invocation. Retries counts extra attempts.
type CommandSpec struct {
	Program string
	Args    []string
	Timeout time.Duration
	Retries int
	// Quiet disables output streaming and failure logging.
	Quiet bool
	// StdoutOnly discards stderr, for commands whose output is parsed.
	StdoutOnly bool
	Dir        string
}

func (s CommandSpec) String() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, s.Program)
	for _, a := range s.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

type CommandResult struct {
	Status   Status
	Output   string
	ExitCode int
	Attempts int
	Duration time.Duration

	cause error
}

func (r CommandResult) OK() bool { return r.Status == StatusSuccess }

// Contains reports whether the combined output mentions substr.
func (r CommandResult) Contains(substr string) bool {
	return strings.Contains(r.Output, substr)
}

// Err is nil on success and wraps ErrFailed or ErrTimedOut otherwise.
func (r CommandResult) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusTimedOut:
		return fmt.Errorf("%w after %d attempt(s)", ErrTimedOut, r.Attempts)
	}
	if r.cause != nil {
		return fmt.Errorf("%w (exit %d): %v", ErrFailed, r.ExitCode, r.cause)
	}
	return fmt.Errorf("%w (exit %d)", ErrFailed, r.ExitCode)
}

// Tail returns at most the last n lines of output.
func (r CommandResult) Tail(n int) string {
	lines := strings.Split(strings.TrimRight(r.Output, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

const (
	DefaultTimeoutBackoff = 5 * time.Second
	DefaultGrace          = 3 * time.Second

	maxOutput = 256 << 10
)

type Options struct {
	Logger *slog.Logger
	// Sink receives every output line as it arrives, unless the command is quiet.
	Sink           func(program, line string)
	TimeoutBackoff time.Duration
	FailureBackoff time.Duration
	// Grace is how long a terminated child gets before it is killed.
	Grace time.Duration
}

type Runner struct {
	log            *slog.Logger
	sink           func(program, line string)
	timeoutBackoff time.Duration
	failureBackoff time.Duration
	grace          time.Duration
}

func New(o Options) *Runner {
	r := &Runner{
		log:            o.Logger,
		sink:           o.Sink,
		timeoutBackoff: o.TimeoutBackoff,
		failureBackoff: o.FailureBackoff,
		grace:          o.Grace,
	}
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	if r.sink == nil {
		log := r.log
		r.sink = func(program, line string) { log.Debug(line, "program", program) }
	}
	if r.timeoutBackoff < 0 {
		r.timeoutBackoff = 0
	}
	if r.grace <= 0 {
		r.grace = DefaultGrace
	}
	return r
}

func (r *Runner) Run(ctx context.Context, spec CommandSpec) CommandResult {
	var res CommandResult
	for attempt := 1; ; attempt++ {
		res = r.attempt(ctx, spec)
		res.Attempts = attempt
		if res.OK() || attempt > spec.Retries || ctx.Err() != nil || errors.Is(res.cause, exec.ErrNotFound) {
			break
		}

		backoff := r.failureBackoff
		if res.Status == StatusTimedOut {
			backoff = r.timeoutBackoff
		}
		if !spec.Quiet {
			r.log.Warn("retrying command",
				"program", spec.Program,
				"status", res.Status.String(),
				"attempt", attempt,
				"of", spec.Retries+1,
				"backoff", backoff,
			)
		}
		if err := sleep(ctx, backoff); err != nil {
			break
		}
	}

	if !res.OK() && !spec.Quiet {
		r.log.Error("command failed",
			"cmd", spec.String(),
			"status", res.Status.String(),
			"exit_code", res.ExitCode,
			"attempts", res.Attempts,
			"output", res.Tail(5),
		)
	}
	return res
}

func (r *Runner) attempt(ctx context.Context, spec CommandSpec) CommandResult {
	start := time.Now()
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
	}
	defer cancel()

	pr, pw, err := os.Pipe()
	if err != nil {
		return CommandResult{Status: StatusFailed, ExitCode: -1, cause: err}
	}
	defer pr.Close()

	cmd := exec.CommandContext(runCtx, spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = pw
	if !spec.StdoutOnly {
		cmd.Stderr = pw
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminate(cmd) }
	cmd.WaitDelay = r.grace

	if err := cmd.Start(); err != nil {
		pw.Close()
		return CommandResult{Status: StatusFailed, ExitCode: -1, Duration: time.Since(start), cause: err}
	}
	pw.Close()

	out := &tailBuffer{max: maxOutput}
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanLines(pr, func(line string) {
			out.WriteLine(line)
			if !spec.Quiet && r.sink != nil {
				r.sink(spec.Program, line)
			}
		})
	}()

	waitErr := cmd.Wait()
	// Reap anything the child left behind holding the pipe open.
	killGroup(cmd)
	<-done

	res := CommandResult{
		Output:   out.String(),
		ExitCode: exitCode(cmd, waitErr),
		Duration: time.Since(start),
	}
	switch {
	case waitErr == nil:
		res.Status = StatusSuccess
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Status = StatusTimedOut
		res.cause = runCtx.Err()
	case ctx.Err() != nil:
		res.Status = StatusFailed
		res.cause = ctx.Err()
	default:
		res.Status = StatusFailed
		res.cause = waitErr
	}
	return res
}

func exitCode(cmd *exec.Cmd, err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
