package adapter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Claude adapts `claude -p --output-format stream-json`. Every message
// carries the session id, so the first parsed line yields the thread.
type Claude struct{}

type claudeLine struct {
	Usage     *claudeUsage   `json:"usage"`
	Message   *claudeMessage `json:"message"`
	Type      string         `json:"type"`
	Subtype   string         `json:"subtype"`
	SessionID string         `json:"session_id"`
	Result    string         `json:"result"`
	IsError   bool           `json:"is_error"`
}

type claudeUsage struct {
	InputTokens          int `json:"input_tokens"`
	CacheReadInputTokens int `json:"cache_read_input_tokens"`
	OutputTokens         int `json:"output_tokens"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type claudeBlock struct {
	Input     map[string]interface{} `json:"input"`
	Type      string                 `json:"type"`
	Text      string                 `json:"text"`
	Thinking  string                 `json:"thinking"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	ToolUseID string                 `json:"tool_use_id"`
	Content   json.RawMessage        `json:"content"`
	IsError   bool                   `json:"is_error"`
}

// claudeInput is the stdin frame of `--input-format stream-json`.
type claudeInput struct {
	Message claudeInputMessage `json:"message"`
	Type    string             `json:"type"`
}

type claudeInputMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

func (Claude) Name() string { return "claude" }

// BuildArguments returns `-p <prompt> --output-format stream-json --verbose
// [--resume <thread>]`.
func (Claude) BuildArguments(_ tool.Descriptor, prompt string, sc SessionContext) []string {
	args := []string{"-p", prompt, "--output-format", "stream-json", "--verbose"}
	if id := sc.ThreadID(); id != "" {
		args = append(args, "--resume", id)
	}
	return args
}

// BuildInput frames prompt as a stream-json user message.
func (Claude) BuildInput(prompt string, _ SessionContext) string {
	b, err := json.Marshal(claudeInput{
		Type:    "user",
		Message: claudeInputMessage{Role: "user", Content: prompt},
	})
	if err != nil {
		return prompt
	}
	return string(b)
}

func (Claude) ParseOutputLine(line string) *Event {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil
	}
	var l claudeLine
	if err := json.Unmarshal([]byte(line), &l); err != nil || l.Type == "" {
		return nil
	}

	switch l.Type {
	case "system":
		return &Event{Type: "system." + l.Subtype, SessionID: l.SessionID}
	case "assistant":
		return claudeAssistantEvent(&l)
	case "user":
		return claudeToolResultEvent(&l)
	case "result":
		ev := &Event{
			Type:      "result",
			Content:   l.Result,
			SessionID: l.SessionID,
			IsError:   l.IsError,
		}
		if l.Usage != nil {
			ev.Usage = &Usage{
				InputTokens:       l.Usage.InputTokens,
				CachedInputTokens: l.Usage.CacheReadInputTokens,
				OutputTokens:      l.Usage.OutputTokens,
			}
		}
		return ev
	}
	return &Event{Type: l.Type, SessionID: l.SessionID, IsUnknown: true}
}

func claudeAssistantEvent(l *claudeLine) *Event {
	ev := &Event{Type: "assistant", SessionID: l.SessionID}
	if l.Message == nil {
		return ev
	}
	blocks := claudeBlocks(l.Message.Content)

	var text, thinking []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			text = append(text, b.Text)
		case "thinking":
			thinking = append(thinking, b.Thinking)
		}
	}

	for _, b := range blocks {
		if b.Type == "tool_use" {
			ev.Type = "tool_use"
			ev.ItemType = ItemToolUse
			ev.ItemID = b.ID
			ev.Phase = PhaseStarted
			ev.Content = b.Name
			ev.Detail = summarizeInput(b.Input)
			ev.Text = strings.Join(text, "")
			return ev
		}
	}

	if len(text) == 0 && len(thinking) > 0 {
		ev.ItemType = ItemReasoning
		ev.Content = strings.Join(thinking, "")
		return ev
	}
	if s, ok := claudeString(l.Message.Content); ok {
		text = append(text, s)
	}
	ev.ItemType = ItemAgentMessage
	ev.Content = strings.Join(text, "")
	return ev
}

func claudeToolResultEvent(l *claudeLine) *Event {
	if l.Message == nil {
		return &Event{Type: "user", SessionID: l.SessionID}
	}
	for _, b := range claudeBlocks(l.Message.Content) {
		if b.Type != "tool_result" {
			continue
		}
		ev := &Event{
			Type:      "tool_result",
			ItemType:  ItemToolUse,
			ItemID:    b.ToolUseID,
			Phase:     PhaseCompleted,
			SessionID: l.SessionID,
			IsError:   b.IsError,
		}
		if s, ok := claudeString(b.Content); ok {
			ev.Detail = s
		} else {
			var parts []string
			for _, inner := range claudeBlocks(b.Content) {
				if inner.Type == "text" {
					parts = append(parts, inner.Text)
				}
			}
			ev.Detail = strings.Join(parts, "")
		}
		return ev
	}
	return &Event{Type: "user", SessionID: l.SessionID}
}

func claudeBlocks(raw json.RawMessage) []claudeBlock {
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var blocks []claudeBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}
	return blocks
}

func claudeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// summarizeInput renders tool arguments as `k=v` pairs in key order.
func summarizeInput(input map[string]interface{}) string {
	if len(input) == 0 {
		return ""
	}
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, input[k]))
	}
	return strings.Join(parts, " ")
}

func (Claude) ExtractSessionID(ev *Event) string {
	if ev == nil {
		return ""
	}
	return ev.SessionID
}

func (Claude) ExtractAssistantMessage(ev *Event) string {
	switch {
	case ev == nil:
		return ""
	case ev.Type == "tool_use" && ev.ItemType == ItemToolUse:
		return ev.Text
	case ev.Type == "assistant" && ev.ItemType == ItemAgentMessage:
		return ev.Content
	}
	return ""
}

func (Claude) EventTitle(ev *Event) string {
	if ev != nil && ev.ItemType == ItemToolUse && ev.Content != "" {
		if ev.Detail != "" && ev.Phase == PhaseStarted {
			return summarize(ev.Content + " " + ev.Detail)
		}
		return summarize(ev.Content)
	}
	return DefaultTitle(ev)
}
