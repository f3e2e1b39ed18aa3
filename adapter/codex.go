package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Codex adapts `codex exec --json`, which prints one JSON event per line:
//
//	{"type":"thread.started","thread_id":"..."}
//	{"type":"item.completed","item":{"id":"item_0","type":"agent_message","text":"..."}}
//	{"type":"turn.completed","usage":{"input_tokens":1,"cached_input_tokens":0,"output_tokens":2}}
type Codex struct{}

type codexLine struct {
	Item     *codexItem  `json:"item"`
	Usage    *codexUsage `json:"usage"`
	Error    *codexError `json:"error"`
	Type     string      `json:"type"`
	ThreadID string      `json:"thread_id"`
	Message  string      `json:"message"`
}

type codexUsage struct {
	InputTokens       int `json:"input_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`
	OutputTokens      int `json:"output_tokens"`
}

type codexError struct {
	Message string `json:"message"`
}

type codexItem struct {
	ExitCode         *int              `json:"exit_code"`
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	ItemType         string            `json:"item_type"`
	Text             string            `json:"text"`
	Command          string            `json:"command"`
	AggregatedOutput string            `json:"aggregated_output"`
	Status           string            `json:"status"`
	Server           string            `json:"server"`
	Tool             string            `json:"tool"`
	Query            string            `json:"query"`
	Message          string            `json:"message"`
	Changes          []codexFileChange `json:"changes"`
	Items            []codexTodo       `json:"items"`
}

type codexFileChange struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

type codexTodo struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

func (Codex) Name() string { return "codex" }

// BuildArguments returns `exec --json --skip-git-repo-check [-C dir] [resume
// <thread>] <prompt>`.
func (Codex) BuildArguments(_ tool.Descriptor, prompt string, sc SessionContext) []string {
	args := []string{"exec", "--json", "--skip-git-repo-check"}
	if sc.WorkDir != "" {
		args = append(args, "-C", sc.WorkDir)
	}
	if id := sc.ThreadID(); id != "" {
		args = append(args, "resume", id)
	}
	return append(args, prompt)
}

func (Codex) ParseOutputLine(line string) *Event {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil
	}
	var l codexLine
	if err := json.Unmarshal([]byte(line), &l); err != nil || l.Type == "" {
		return nil
	}

	switch l.Type {
	case "thread.started":
		return &Event{Type: l.Type, SessionID: l.ThreadID}
	case "turn.started":
		return &Event{Type: l.Type}
	case "turn.completed":
		ev := &Event{Type: l.Type}
		if l.Usage != nil {
			ev.Usage = &Usage{
				InputTokens:       l.Usage.InputTokens,
				CachedInputTokens: l.Usage.CachedInputTokens,
				OutputTokens:      l.Usage.OutputTokens,
			}
		}
		return ev
	case "turn.failed":
		ev := &Event{Type: l.Type, IsError: true}
		if l.Error != nil {
			ev.Content = l.Error.Message
		}
		return ev
	case "error":
		return &Event{Type: l.Type, Content: l.Message, IsError: true}
	case "item.started", "item.updated", "item.completed":
		if l.Item == nil {
			return &Event{Type: l.Type, IsUnknown: true}
		}
		return codexItemEvent(l.Type, l.Item)
	}
	return &Event{Type: l.Type, IsUnknown: true}
}

func codexItemEvent(typ string, item *codexItem) *Event {
	ev := &Event{
		Type:     typ,
		ItemID:   item.ID,
		ItemType: item.Type,
		Phase:    Phase(strings.TrimPrefix(typ, "item.")),
	}
	if ev.ItemType == "" {
		ev.ItemType = item.ItemType
	}

	switch ev.ItemType {
	case ItemAgentMessage, ItemReasoning:
		ev.Content = item.Text
	case ItemCommandExecution:
		ev.Content = item.Command
		ev.Detail = item.AggregatedOutput
		if item.ExitCode != nil && *item.ExitCode != 0 {
			ev.IsError = true
		}
	case ItemFileChange:
		paths := make([]string, 0, len(item.Changes))
		for _, c := range item.Changes {
			paths = append(paths, c.Path)
		}
		ev.Content = strings.Join(paths, ", ")
	case ItemMCPToolCall:
		ev.Content = item.Server + "." + item.Tool
		ev.IsError = item.Status == "failed"
	case ItemWebSearch:
		ev.Content = item.Query
	case ItemTodoList:
		lines := make([]string, 0, len(item.Items))
		for _, t := range item.Items {
			mark := "[ ]"
			if t.Completed {
				mark = "[x]"
			}
			lines = append(lines, mark+" "+t.Text)
		}
		ev.Content = strings.Join(lines, "\n")
	case "error":
		ev.Content = item.Message
		ev.IsError = true
	default:
		ev.Content = item.Text
	}
	return ev
}

func (Codex) ExtractSessionID(ev *Event) string {
	if ev == nil || ev.Type != "thread.started" {
		return ""
	}
	return ev.SessionID
}

func (Codex) ExtractAssistantMessage(ev *Event) string {
	if ev == nil || ev.ItemType != ItemAgentMessage || ev.Phase != PhaseCompleted {
		return ""
	}
	return ev.Content
}

func (Codex) EventTitle(ev *Event) string {
	if ev != nil && ev.Type == "turn.completed" && ev.Usage != nil {
		return fmt.Sprintf("Turn completed (%d in, %d out)", ev.Usage.InputTokens, ev.Usage.OutputTokens)
	}
	return DefaultTitle(ev)
}
