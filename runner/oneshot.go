package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/internal/procattr"
	"github.com/bazelment/yoloswe/agentchat/stream"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Request describes one turn of a tool.
type Request struct {
	Adapter adapter.Adapter
	Env     map[string]string
	Session adapter.SessionContext
	Prompt  string
	Tool    tool.Descriptor
}

// workDir returns the directory the tool runs in.
func (r Request) workDir() string {
	if r.Tool.WorkDir != "" {
		return r.Tool.WorkDir
	}
	return r.Session.WorkDir
}

// OneShot runs a tool process per turn and streams its output.
type OneShot struct {
	cfg Config
}

// NewOneShot returns a one-shot supervisor.
func NewOneShot(opts ...Option) *OneShot {
	return &OneShot{cfg: newConfig(opts)}
}

// Run starts the tool and returns its output. The sequence ends with exactly
// one terminal chunk: completion once both streams hit EOF and the process
// was reaped, or an error for start failures, read failures, the tool's
// timeout, or cancellation of ctx. Callers must receive until the channel is
// closed.
func (o *OneShot) Run(ctx context.Context, req Request) <-chan stream.Chunk {
	out := make(chan stream.Chunk, o.cfg.ChunkBufferSize)
	go func() {
		defer close(out)
		out <- o.safeRun(ctx, req, out)
	}()
	return out
}

func (o *OneShot) safeRun(ctx context.Context, req Request, out chan<- stream.Chunk) (term stream.Chunk) {
	defer func() {
		if r := recover(); r != nil {
			o.cfg.Logger.Error("tool run panicked", "tool", req.Tool.ID, "panic", r)
			term = stream.Failure(fmt.Sprintf("internal error: %v", r))
		}
	}()
	return o.run(ctx, req, out)
}

func (o *OneShot) run(ctx context.Context, req Request, out chan<- stream.Chunk) stream.Chunk {
	logger := o.cfg.Logger.With("tool", req.Tool.ID, "session", req.Session.SessionID)

	args, err := BuildArgs(req.Tool, req.Adapter, req.Prompt, req.Session)
	if err != nil {
		return stream.Failed(err)
	}

	cmd := exec.Command(req.Tool.Command, args...)
	cmd.Dir = req.workDir()
	cmd.Env = BuildEnv(os.Environ(), req.Tool.Env, req.Env)
	procattr.Set(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return stream.Failed(&ProcessStartError{Path: req.Tool.Command, Cause: err})
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return stream.Failed(&ProcessStartError{Path: req.Tool.Command, Cause: err})
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("tool failed to start", "command", req.Tool.Command, "error", err)
		return stream.Failed(&ProcessStartError{Path: req.Tool.Command, Cause: err})
	}
	logger.Info("tool started", "pid", cmd.Process.Pid,
		"command", req.Tool.Command, "args", FormatCommandLine(args))

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout := req.Tool.Timeout(); timeout > 0 {
		runCtx, cancel = context.WithTimeoutCause(ctx, timeout, &TimeoutError{After: timeout})
	}
	defer cancel()

	mux := stream.NewMultiplexer(stdout, stderr)
	exited := make(chan struct{})
	var waitErr error
	go func() {
		<-mux.Done()
		waitErr = cmd.Wait()
		close(exited)
	}()
	defer func() {
		select {
		case <-exited:
		default:
			if err := procattr.KillGroup(cmd.Process); err != nil {
				logger.Warn("kill tool process group", "pid", cmd.Process.Pid, "error", err)
			}
		}
	}()

	q := mux.Queue()
	for {
		line, err := q.Next(runCtx)
		if errors.Is(err, io.EOF) {
			<-exited
			logExit(logger, cmd, waitErr)
			return stream.Completed()
		}
		if err != nil {
			return o.abort(runCtx, cmd, exited, logger)
		}
		if line.Err != nil {
			logger.Warn("tool stream read failed", "error", line.Err)
			o.kill(cmd, exited, logger)
			return stream.Failed(line.Err)
		}
		select {
		case out <- stream.Content(line.Source, line.Text):
		case <-runCtx.Done():
			return o.abort(runCtx, cmd, exited, logger)
		}
	}
}

// abort stops the process after runCtx ended and returns the matching
// terminal chunk. A timeout kills the group outright; caller cancellation
// gets a graceful SIGTERM first.
func (o *OneShot) abort(runCtx context.Context, cmd *exec.Cmd, exited <-chan struct{}, logger *slog.Logger) stream.Chunk {
	var timeout *TimeoutError
	if errors.As(context.Cause(runCtx), &timeout) {
		logger.Warn("tool timed out", "pid", cmd.Process.Pid, "after", timeout.After)
		if err := procattr.KillGroup(cmd.Process); err != nil {
			logger.Warn("kill tool process group", "pid", cmd.Process.Pid, "error", err)
		}
		waitExited(exited, logger)
		return stream.Failed(timeout)
	}

	logger.Info("tool cancelled", "pid", cmd.Process.Pid)
	if err := procattr.Terminate(cmd.Process, exited, o.cfg.KillGrace); err != nil {
		logger.Warn("terminate tool process group", "pid", cmd.Process.Pid, "error", err)
	}
	waitExited(exited, logger)
	return stream.Failed(ErrCancelled)
}

func (o *OneShot) kill(cmd *exec.Cmd, exited <-chan struct{}, logger *slog.Logger) {
	if err := procattr.KillGroup(cmd.Process); err != nil {
		logger.Warn("kill tool process group", "pid", cmd.Process.Pid, "error", err)
	}
	waitExited(exited, logger)
}

func waitExited(exited <-chan struct{}, logger *slog.Logger) {
	select {
	case <-exited:
	case <-time.After(defaultExitWait):
		logger.Warn("tool process did not exit after kill", "waited", defaultExitWait)
	}
}

func logExit(logger *slog.Logger, cmd *exec.Cmd, waitErr error) {
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		logger.Warn("tool wait failed", "pid", cmd.Process.Pid, "error", waitErr)
	}
	logger.Info("tool exited", "pid", cmd.Process.Pid, "exit_code", code)
}
