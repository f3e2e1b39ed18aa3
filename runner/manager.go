package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/internal/procattr"
	"github.com/bazelment/yoloswe/agentchat/stream"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Handle is one long-lived tool process owned by a Manager.
type Handle struct {
	CreatedAt    time.Time
	lastActivity time.Time
	exitErr      error
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	mux          *stream.Multiplexer
	exited       chan struct{}
	ID           string
	SessionID    string
	ToolID       string
	PID          int
	mu           sync.Mutex
}

// LastActivity returns when the process last produced output or received
// input.
func (h *Handle) LastActivity() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastActivity
}

func (h *Handle) touch() {
	h.mu.Lock()
	h.lastActivity = time.Now()
	h.mu.Unlock()
}

// Exited is closed once the process has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// Err waits for the process to exit and returns the result of reaping it.
func (h *Handle) Err() error {
	<-h.exited
	return h.exitErr
}

// Alive reports whether the process is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

type handleKey struct {
	sessionID string
	toolID    string
}

// Manager keeps at most one persistent process per (session, tool) pair.
// Turns on one handle must be serialized by the caller.
type Manager struct {
	handles map[handleKey]*Handle
	cfg     Config
	mu      sync.Mutex
}

// NewManager returns an empty manager.
func NewManager(opts ...Option) *Manager {
	return &Manager{
		cfg:     newConfig(opts),
		handles: make(map[handleKey]*Handle),
	}
}

// GetOrCreate returns the live process of (sc.SessionID, toolID), starting
// one from desc.PersistentArgs if there is none. A new process sees sc's
// resumption, so {thread} expands to the session's recorded thread.
func (m *Manager) GetOrCreate(ctx context.Context, sc adapter.SessionContext, toolID string, desc tool.Descriptor, env map[string]string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := handleKey{sessionID: sc.SessionID, toolID: toolID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.handles[key]; ok {
		if h.Alive() {
			return h, nil
		}
		delete(m.handles, key)
	}

	h, err := m.spawn(sc, toolID, desc, env)
	if err != nil {
		return nil, err
	}
	m.handles[key] = h
	return h, nil
}

func (m *Manager) spawn(sc adapter.SessionContext, toolID string, desc tool.Descriptor, env map[string]string) (*Handle, error) {
	if sc.Resumption == nil {
		sc.Resumption = adapter.Fresh{}
	}
	sessionID := sc.SessionID
	args, err := PersistentArgs(desc, sc)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(desc.Command, args...)
	cmd.Dir = sc.WorkDir
	if desc.WorkDir != "" {
		cmd.Dir = desc.WorkDir
	}
	cmd.Env = BuildEnv(os.Environ(), desc.Env, env)
	procattr.Set(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ProcessStartError{Path: desc.Command, Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ProcessStartError{Path: desc.Command, Cause: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &ProcessStartError{Path: desc.Command, Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &ProcessStartError{Path: desc.Command, Cause: err}
	}

	now := time.Now()
	h := &Handle{
		ID:           uuid.NewString(),
		PID:          cmd.Process.Pid,
		SessionID:    sessionID,
		ToolID:       toolID,
		CreatedAt:    now,
		lastActivity: now,
		cmd:          cmd,
		stdin:        stdin,
		mux:          stream.NewMultiplexer(stdout, stderr),
		exited:       make(chan struct{}),
	}
	m.cfg.Logger.Info("persistent process started",
		"session", sessionID, "tool", toolID, "pid", h.PID, "handle", h.ID,
		"thread", sc.ThreadID(), "args", FormatCommandLine(args))

	go m.watch(h)
	return h, nil
}

// watch reaps the process and drops its handle from the table.
func (m *Manager) watch(h *Handle) {
	<-h.mux.Done()
	h.exitErr = h.cmd.Wait()
	close(h.exited)

	m.mu.Lock()
	key := handleKey{sessionID: h.SessionID, toolID: h.ToolID}
	if m.handles[key] == h {
		delete(m.handles, key)
	}
	m.mu.Unlock()

	code := -1
	if h.cmd.ProcessState != nil {
		code = h.cmd.ProcessState.ExitCode()
	}
	m.cfg.Logger.Info("persistent process exited",
		"session", h.SessionID, "tool", h.ToolID, "pid", h.PID, "exit_code", code)
}

// SendInput writes text and a newline to the process. Output left over from
// an earlier cancelled turn is discarded first so it is not attributed to
// this turn.
func (m *Manager) SendInput(ctx context.Context, h *Handle, text string) error {
	if !h.Alive() {
		return &InputWriteError{PID: h.PID, Cause: ErrProcessExited}
	}
	if stale := h.mux.Queue().Drain(); len(stale) > 0 {
		m.cfg.Logger.Debug("discarded stale output", "pid", h.PID, "lines", len(stale))
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.WriteString(h.stdin, text+"\n")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return &InputWriteError{PID: h.PID, Cause: err}
		}
		h.touch()
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}

// ReadTurn streams the process output of the current turn. The turn is
// complete once at least one line arrived and then idle passed without
// output. A tool that pauses longer than idle in the middle of a response is
// cut off at that point; raise the tool's idle window if that happens.
//
// If ctx ends because of a TimeoutError cause the process is killed;
// any other cancellation only stops listening and leaves the process running
// for the next turn. If the process exits, its remaining output is delivered
// and the turn completes, or fails with ErrProcessExited when the process
// said nothing.
func (m *Manager) ReadTurn(ctx context.Context, h *Handle, idle time.Duration) <-chan stream.Chunk {
	if idle <= 0 {
		idle = m.cfg.IdleWindow
	}
	out := make(chan stream.Chunk, m.cfg.ChunkBufferSize)
	go func() {
		defer close(out)
		out <- m.readTurn(ctx, h, idle, out)
	}()
	return out
}

func (m *Manager) readTurn(ctx context.Context, h *Handle, idle time.Duration, out chan<- stream.Chunk) stream.Chunk {
	q := h.mux.Queue()
	quiet := time.NewTimer(idle)
	defer quiet.Stop()
	seen := false

	for {
		for {
			line, ok := q.TryPop()
			if !ok {
				break
			}
			if line.Err != nil {
				m.cfg.Logger.Warn("persistent stream read failed", "pid", h.PID, "error", line.Err)
				return stream.Failed(line.Err)
			}
			select {
			case out <- stream.Content(line.Source, line.Text):
			case <-ctx.Done():
				return m.stopTurn(ctx, h)
			}
			seen = true
			h.touch()
			quiet.Reset(idle)
		}
		if q.Closed() && q.Len() == 0 {
			<-h.exited
			if !seen {
				m.cfg.Logger.Warn("persistent process exited without replying",
					"session", h.SessionID, "tool", h.ToolID, "pid", h.PID, "error", h.exitErr)
				return stream.Failed(ErrProcessExited)
			}
			return stream.Completed()
		}

		var quietC <-chan time.Time
		if seen {
			quietC = quiet.C
		}
		select {
		case <-ctx.Done():
			return m.stopTurn(ctx, h)
		case <-q.Ready():
		case <-quietC:
			return stream.Completed()
		}
	}
}

func (m *Manager) stopTurn(ctx context.Context, h *Handle) stream.Chunk {
	var timeout *TimeoutError
	if errors.As(context.Cause(ctx), &timeout) {
		m.cfg.Logger.Warn("persistent turn timed out",
			"session", h.SessionID, "tool", h.ToolID, "pid", h.PID, "after", timeout.After)
		m.remove(h)
		m.kill(h)
		return stream.Failed(timeout)
	}
	return stream.Failed(ErrCancelled)
}

// Turn sends input and reads the reply, enforcing timeout when positive.
func (m *Manager) Turn(ctx context.Context, h *Handle, input string, idle, timeout time.Duration) <-chan stream.Chunk {
	if timeout <= 0 {
		return m.turn(ctx, h, input, idle, func() {})
	}
	tctx, cancel := context.WithTimeoutCause(ctx, timeout, &TimeoutError{After: timeout})
	return m.turn(tctx, h, input, idle, cancel)
}

func (m *Manager) turn(ctx context.Context, h *Handle, input string, idle time.Duration, release func()) <-chan stream.Chunk {
	if err := m.SendInput(ctx, h, input); err != nil {
		release()
		if errors.Is(err, ErrCancelled) {
			return single(m.stopTurn(ctx, h))
		}
		return single(stream.Failed(err))
	}
	chunks := m.ReadTurn(ctx, h, idle)
	out := make(chan stream.Chunk, m.cfg.ChunkBufferSize)
	go func() {
		defer close(out)
		defer release()
		for c := range chunks {
			out <- c
		}
	}()
	return out
}

func single(c stream.Chunk) <-chan stream.Chunk {
	ch := make(chan stream.Chunk, 1)
	ch <- c
	close(ch)
	return ch
}

// CleanupSession kills every process of sessionID and returns how many
// handles were removed. Processes that already exited are tolerated.
func (m *Manager) CleanupSession(sessionID string) int {
	m.mu.Lock()
	var doomed []*Handle
	for key, h := range m.handles {
		if key.sessionID == sessionID {
			doomed = append(doomed, h)
			delete(m.handles, key)
		}
	}
	m.mu.Unlock()

	for _, h := range doomed {
		m.kill(h)
	}
	return len(doomed)
}

// CleanupAll kills every process.
func (m *Manager) CleanupAll() {
	m.mu.Lock()
	doomed := make([]*Handle, 0, len(m.handles))
	for key, h := range m.handles {
		doomed = append(doomed, h)
		delete(m.handles, key)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range doomed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.kill(h)
		}()
	}
	wg.Wait()
}

// Handles returns a snapshot of the live handles.
func (m *Manager) Handles() []*Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h)
	}
	return out
}

// Len returns the number of live handles.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

func (m *Manager) remove(h *Handle) {
	m.mu.Lock()
	key := handleKey{sessionID: h.SessionID, toolID: h.ToolID}
	if m.handles[key] == h {
		delete(m.handles, key)
	}
	m.mu.Unlock()
}

// kill closes stdin and terminates the process group.
func (m *Manager) kill(h *Handle) {
	logger := m.cfg.Logger.With("session", h.SessionID, "tool", h.ToolID, "pid", h.PID)
	if err := h.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Debug("close stdin", "error", err)
	}
	if !h.Alive() {
		return
	}
	if err := procattr.Terminate(h.cmd.Process, h.exited, m.cfg.KillGrace); err != nil {
		logger.Warn("terminate persistent process", "error", fmt.Errorf("pid %d: %w", h.PID, err))
	}
}
