// Package orchestrator is the entry point for running a chat turn against an
// external coding-assistant tool.
//
// An Executor validates the tool, waits for a slot in the global concurrency
// gate, runs the tool in one-shot or persistent mode, and streams the output
// back as chunks. When a turn succeeds it scans the output for the tool's
// conversation thread id so the next turn of the session resumes it.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/runner"
	"github.com/bazelment/yoloswe/agentchat/stream"
	"github.com/bazelment/yoloswe/agentchat/thread"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Executor runs turns. It is safe for concurrent use; turns of one session
// must be issued one at a time.
type Executor struct {
	tools   *tool.Registry
	gate    *semaphore.Weighted
	oneShot *runner.OneShot
	manager *runner.Manager
	cfg     Config
}

// New returns an Executor for the tools in reg.
func New(reg *tool.Registry, opts ...Option) *Executor {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Adapters == nil {
		cfg.Adapters = adapter.DefaultRegistry()
	}
	if cfg.Threads == nil {
		cfg.Threads = thread.NewRegistry()
	}
	if cfg.Workspaces == nil {
		cfg.Workspaces = DirWorkspaces{Root: filepath.Join(os.TempDir(), "agentchat")}
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.ChunkBufferSize <= 0 {
		cfg.ChunkBufferSize = runner.DefaultChunkBufferSize
	}

	runnerOpts := append([]runner.Option{runner.WithLogger(cfg.Logger)}, cfg.RunnerOptions...)
	return &Executor{
		tools:   reg,
		gate:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		oneShot: runner.NewOneShot(runnerOpts...),
		manager: runner.NewManager(runnerOpts...),
		cfg:     cfg,
	}
}

// ExecuteStream runs prompt against toolID for sessionID. The returned
// sequence always ends with exactly one terminal chunk, and nothing panics
// out of the call: unknown or disabled tools, start failures, timeouts and
// cancellation all arrive as a terminal error chunk. Callers must receive
// until the channel is closed.
func (e *Executor) ExecuteStream(ctx context.Context, sessionID, toolID, prompt string) <-chan stream.Chunk {
	out := make(chan stream.Chunk, e.cfg.ChunkBufferSize)
	go func() {
		defer close(out)
		terminated := false
		send := func(c stream.Chunk) {
			if terminated {
				return
			}
			terminated = c.Terminal()
			out <- c
		}
		defer func() {
			if r := recover(); r != nil {
				e.cfg.Logger.Error("turn panicked", "session", sessionID, "tool", toolID, "panic", r)
				send(stream.Failure(fmt.Sprintf("internal error: %v", r)))
			}
		}()
		e.execute(ctx, sessionID, toolID, prompt, send)
	}()
	return out
}

func (e *Executor) execute(ctx context.Context, sessionID, toolID, prompt string, send func(stream.Chunk)) {
	logger := e.cfg.Logger.With("session", sessionID, "tool", toolID)

	desc, err := e.tools.Lookup(toolID)
	if err != nil {
		logger.Warn("rejected turn", "error", err)
		send(stream.Failed(err))
		return
	}

	if err := e.gate.Acquire(ctx, 1); err != nil {
		send(stream.Failed(runner.ErrCancelled))
		return
	}
	defer e.gate.Release(1)

	workDir, err := e.cfg.Workspaces.Workspace(sessionID)
	if err != nil {
		send(stream.Failed(fmt.Errorf("workspace for session %q: %w", sessionID, err)))
		return
	}

	sc := adapter.SessionContext{SessionID: sessionID, WorkDir: workDir, Resumption: adapter.Fresh{}}
	if id, ok := e.cfg.Threads.Get(sessionID); ok {
		sc.Resumption = adapter.Resume{ThreadID: id}
	}
	a := e.cfg.Adapters.Get(desc)
	var env map[string]string
	if e.cfg.Env != nil {
		env = e.cfg.Env.Env(toolID)
	}

	var chunks <-chan stream.Chunk
	if desc.Persistent {
		chunks = e.persistentTurn(ctx, desc, a, sc, env, prompt)
	} else {
		chunks = e.oneShot.Run(ctx, runner.Request{
			Tool:    desc,
			Adapter: a,
			Session: sc,
			Env:     env,
			Prompt:  prompt,
		})
	}

	var output strings.Builder
	for c := range chunks {
		if !c.Terminal() {
			output.WriteString(c.Content)
		} else if !c.IsError {
			e.recordThread(sessionID, a, output.String())
		}
		send(c)
	}
}

func (e *Executor) persistentTurn(ctx context.Context, desc tool.Descriptor, a adapter.Adapter, sc adapter.SessionContext, env map[string]string, prompt string) <-chan stream.Chunk {
	h, err := e.manager.GetOrCreate(ctx, sc, desc.ID, desc, env)
	if err != nil {
		ch := make(chan stream.Chunk, 1)
		ch <- stream.Failed(err)
		close(ch)
		return ch
	}
	input := prompt
	if ib, ok := a.(adapter.InputBuilder); ok {
		input = ib.BuildInput(prompt, sc)
	}
	idle := desc.IdleWindow()
	if desc.IdleWindowSeconds <= 0 {
		idle = 0
	}
	return e.manager.Turn(ctx, h, input, idle, desc.Timeout())
}

// recordThread stores the thread id found in output unless the session
// already has one.
func (e *Executor) recordThread(sessionID string, a adapter.Adapter, output string) {
	if a == nil {
		return
	}
	if _, ok := e.cfg.Threads.Get(sessionID); ok {
		return
	}
	id := adapter.FindThreadID(a, output)
	if id == "" {
		return
	}
	if e.cfg.Threads.SetIfAbsent(sessionID, id) {
		e.cfg.Logger.Info("recorded thread", "session", sessionID, "adapter", a.Name(), "thread", id)
	}
}

// ThreadID returns the tool thread recorded for sessionID.
func (e *Executor) ThreadID(sessionID string) (string, bool) {
	return e.cfg.Threads.Get(sessionID)
}

// SetThreadID records threadID for sessionID, replacing any previous one.
// An empty threadID forgets the thread.
func (e *Executor) SetThreadID(sessionID, threadID string) {
	e.cfg.Threads.Set(sessionID, threadID)
}

// Adapter returns the protocol adapter of toolID, or nil when the tool is
// unknown or has none.
func (e *Executor) Adapter(toolID string) adapter.Adapter {
	desc, ok := e.tools.Get(toolID)
	if !ok {
		return nil
	}
	return e.cfg.Adapters.Get(desc)
}

// SupportsStreamParsing reports whether output of toolID can be parsed into
// events.
func (e *Executor) SupportsStreamParsing(toolID string) bool {
	return e.Adapter(toolID) != nil
}

// Tools lists every configured tool, enabled or not.
func (e *Executor) Tools() []tool.Descriptor {
	return e.tools.List()
}

// CleanupSession stops the session's persistent processes and forgets its
// thread. It is called when the session's workspace is torn down.
func (e *Executor) CleanupSession(sessionID string) {
	n := e.manager.CleanupSession(sessionID)
	e.cfg.Threads.Delete(sessionID)
	e.cfg.Logger.Info("session cleaned up", "session", sessionID, "processes", n)
}

// Close stops every persistent process.
func (e *Executor) Close() {
	e.manager.CleanupAll()
}
