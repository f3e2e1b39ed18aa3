package adapter

import (
	"encoding/json"
	"strings"

	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Cursor adapts `agent chat -p --output-format stream-json`.
//
//	{"type":"system","subtype":"init","session_id":"..."}
//	{"type":"tool_call","subtype":"started","call_id":"...","tool_call":{"Read":{"args":{...}}}}
//	{"type":"result","subtype":"success","is_error":false,"result":"...","session_id":"..."}
type Cursor struct{}

type cursorLine struct {
	ToolCall  map[string]cursorToolCall `json:"tool_call"`
	Message   *cursorMessage            `json:"message"`
	Type      string                    `json:"type"`
	Subtype   string                    `json:"subtype"`
	CallID    string                    `json:"call_id"`
	SessionID string                    `json:"session_id"`
	Result    string                    `json:"result"`
	IsError   bool                      `json:"is_error"`
}

type cursorMessage struct {
	Role    string          `json:"role"`
	Content []cursorContent `json:"content"`
}

type cursorContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// cursorToolCall is the value under the single tool-name key of tool_call.
type cursorToolCall struct {
	Args   map[string]interface{} `json:"args"`
	Result interface{}            `json:"result"`
}

func (Cursor) Name() string { return "cursor" }

// BuildArguments returns `chat -p <prompt> --output-format stream-json
// [--resume <thread>]`.
func (Cursor) BuildArguments(_ tool.Descriptor, prompt string, sc SessionContext) []string {
	args := []string{"chat", "-p", prompt, "--output-format", "stream-json"}
	if id := sc.ThreadID(); id != "" {
		args = append(args, "--resume", id)
	}
	return args
}

func (Cursor) ParseOutputLine(line string) *Event {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil
	}
	var l cursorLine
	if err := json.Unmarshal([]byte(line), &l); err != nil || l.Type == "" {
		return nil
	}

	switch l.Type {
	case "system":
		return &Event{Type: "system." + l.Subtype, SessionID: l.SessionID}
	case "assistant":
		ev := &Event{Type: "assistant", ItemType: ItemAgentMessage, SessionID: l.SessionID}
		if l.Message != nil {
			var parts []string
			for _, c := range l.Message.Content {
				if c.Type == "text" {
					parts = append(parts, c.Text)
				}
			}
			ev.Content = strings.Join(parts, "")
		}
		return ev
	case "tool_call":
		ev := &Event{
			Type:      "tool_call",
			ItemType:  ItemToolCall,
			ItemID:    l.CallID,
			SessionID: l.SessionID,
		}
		switch l.Subtype {
		case "started":
			ev.Phase = PhaseStarted
		case "completed":
			ev.Phase = PhaseCompleted
		default:
			ev.Phase = PhaseUpdated
		}
		for name, call := range l.ToolCall {
			ev.Content = name
			ev.Detail = summarizeInput(call.Args)
			break
		}
		return ev
	case "result":
		return &Event{
			Type:      "result",
			Content:   l.Result,
			SessionID: l.SessionID,
			IsError:   l.IsError || l.Subtype == "error",
		}
	}
	return &Event{Type: l.Type, SessionID: l.SessionID, IsUnknown: true}
}

func (Cursor) ExtractSessionID(ev *Event) string {
	if ev == nil {
		return ""
	}
	return ev.SessionID
}

func (Cursor) ExtractAssistantMessage(ev *Event) string {
	if ev == nil || ev.Type != "assistant" {
		return ""
	}
	return ev.Content
}

func (Cursor) EventTitle(ev *Event) string {
	if ev != nil && ev.ItemType == ItemToolCall && ev.Content != "" {
		if ev.Detail != "" {
			return summarize(ev.Content + " " + ev.Detail)
		}
		return summarize(ev.Content)
	}
	return DefaultTitle(ev)
}
