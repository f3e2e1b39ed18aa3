package server

import (
	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/stream"
)

// Client message types.
const (
	TypeExecute = "execute"
	TypeCancel  = "cancel"
	TypeCleanup = "cleanup"
)

// Server message types.
const (
	TypeChunk   = "chunk"
	TypeEvent   = "event"
	TypeDone    = "done"
	TypeCleaned = "cleaned"
	TypeError   = "error"
)

// Request is a message sent by a client over the WebSocket.
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	ToolID    string `json:"toolId,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

// Response is a message sent to a client. Chunk and Event are set for the
// matching types only.
type Response struct {
	Chunk     *stream.Chunk  `json:"chunk,omitempty"`
	Event     *adapter.Event `json:"event,omitempty"`
	Type      string         `json:"type"`
	RequestID string         `json:"requestId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Title     string         `json:"title,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ToolInfo describes a tool to clients.
type ToolInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Persistent    bool   `json:"persistent"`
	Enabled       bool   `json:"enabled"`
	StreamParsing bool   `json:"streamParsing"`
}
