// Package server exposes chat turns over a WebSocket, streaming output chunks
// and parsed tool events as they arrive.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/stream"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendBuffer    = 256
)

// Executor is the part of the orchestrator the server drives.
type Executor interface {
	ExecuteStream(ctx context.Context, sessionID, toolID, prompt string) <-chan stream.Chunk
	CleanupSession(sessionID string)
	Adapter(toolID string) adapter.Adapter
	Tools() []tool.Descriptor
}

// Server routes client requests to an Executor.
type Server struct {
	exec     Executor
	logger   *slog.Logger
	upgrader websocket.Upgrader
	sessions sessionLocks
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCheckOrigin sets the WebSocket origin check. By default every origin is
// accepted.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New returns a server for exec.
func New(exec Executor, opts ...Option) *Server {
	s := &Server{
		exec: exec,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.exec.Tools()
	out := make([]ToolInfo, 0, len(tools))
	for _, d := range tools {
		out = append(out, ToolInfo{
			ID:            d.ID,
			Name:          d.Name(),
			Persistent:    d.Persistent,
			Enabled:       d.Enabled,
			StreamParsing: s.exec.Adapter(d.ID) != nil,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.cleanup(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cleanup(sessionID string) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()
	s.exec.CleanupSession(sessionID)
}

// sessionLocks serializes turns of one session. An entry lives only while
// some caller holds or waits for it.
type sessionLocks struct {
	locks map[string]*sessionLock
	mu    sync.Mutex
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until sessionID is free and returns the matching unlock.
func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sessionLock)
	}
	sl := l.locks[sessionID]
	if sl == nil {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type client struct {
	ctx     context.Context
	conn    *websocket.Conn
	send    chan []byte
	server  *Server
	logger  *slog.Logger
	cancels map[string]context.CancelFunc
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		ctx:     ctx,
		cancel:  cancel,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		server:  s,
		logger:  s.logger.With("remote", r.RemoteAddr),
		cancels: make(map[string]context.CancelFunc),
	}
	c.logger.Debug("client connected")

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.cancel()
		c.wg.Wait()
		c.conn.Close()
		c.logger.Debug("client disconnected")
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// enqueue queues resp for the writer. It reports false once the client is
// gone.
func (c *client) enqueue(resp Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("marshal response", "type", resp.Type, "error", err)
		return false
	}
	select {
	case c.send <- data:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *client) fail(requestID, msg string) {
	c.enqueue(Response{Type: TypeError, RequestID: requestID, Error: msg})
}

func (c *client) handleMessage(raw []byte) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		c.fail("", fmt.Sprintf("invalid message: %v", err))
		return
	}

	switch req.Type {
	case TypeExecute:
		if err := validateExecute(req); err != nil {
			c.fail(req.RequestID, err.Error())
			return
		}
		if req.RequestID == "" {
			req.RequestID = uuid.NewString()
		}
		c.startTurn(req)
	case TypeCancel:
		c.mu.Lock()
		cancel := c.cancels[req.RequestID]
		c.mu.Unlock()
		if cancel == nil {
			c.fail(req.RequestID, "no running request "+req.RequestID)
			return
		}
		cancel()
	case TypeCleanup:
		if req.SessionID == "" {
			c.fail(req.RequestID, "sessionId is required")
			return
		}
		// Cleanup waits for the session's running turn, so keep reading
		// meanwhile; a cancel for that turn may follow.
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.server.cleanup(req.SessionID)
			c.enqueue(Response{Type: TypeCleaned, RequestID: req.RequestID, SessionID: req.SessionID})
		}()
	default:
		c.fail(req.RequestID, fmt.Sprintf("unknown message type %q", req.Type))
	}
}

func validateExecute(req Request) error {
	var missing []string
	if req.SessionID == "" {
		missing = append(missing, "sessionId")
	}
	if req.ToolID == "" {
		missing = append(missing, "toolId")
	}
	if len(missing) > 0 {
		return errors.New(strings.Join(missing, ", ") + " required")
	}
	return nil
}

func (c *client) startTurn(req Request) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.mu.Lock()
	if _, dup := c.cancels[req.RequestID]; dup {
		c.mu.Unlock()
		cancel()
		c.fail(req.RequestID, "duplicate request id "+req.RequestID)
		return
	}
	c.cancels[req.RequestID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.cancels, req.RequestID)
			c.mu.Unlock()
			cancel()
		}()
		c.runTurn(ctx, req)
	}()
}

// runTurn streams one turn to the client. Raw chunks are always sent; when
// the tool has an adapter each complete output line is also sent as a parsed
// event.
func (c *client) runTurn(ctx context.Context, req Request) {
	unlock := c.server.sessions.lock(req.SessionID)
	defer unlock()

	a := c.server.exec.Adapter(req.ToolID)
	logger := c.logger.With("request", req.RequestID, "session", req.SessionID, "tool", req.ToolID)
	logger.Info("turn started")

	var pending strings.Builder
	for chunk := range c.server.exec.ExecuteStream(ctx, req.SessionID, req.ToolID, req.Prompt) {
		c.enqueue(Response{Type: TypeChunk, RequestID: req.RequestID, SessionID: req.SessionID, Chunk: &chunk})
		if a == nil || chunk.Terminal() {
			continue
		}
		pending.WriteString(chunk.Content)
		if !strings.HasSuffix(chunk.Content, "\n") {
			continue
		}
		line := pending.String()
		pending.Reset()
		if ev := adapter.ParseLine(a, line); ev != nil {
			c.enqueue(Response{
				Type:      TypeEvent,
				RequestID: req.RequestID,
				SessionID: req.SessionID,
				Event:     ev,
				Title:     a.EventTitle(ev),
			})
		}
	}
	c.enqueue(Response{Type: TypeDone, RequestID: req.RequestID, SessionID: req.SessionID})
	logger.Info("turn finished")
}
