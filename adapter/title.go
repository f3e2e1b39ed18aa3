package adapter

import "strings"

const maxTitleLen = 80

// DefaultTitle labels an event from its normalized fields. Adapters fall back
// to it for item types they do not special-case. Item events without content
// have no title of their own and yield "".
func DefaultTitle(ev *Event) string {
	if ev == nil {
		return ""
	}
	switch ev.ItemType {
	case ItemCommandExecution, ItemFileChange, ItemMCPToolCall, ItemToolCall, ItemToolUse, ItemWebSearch:
		if strings.TrimSpace(ev.Content) == "" {
			return ""
		}
	}
	switch ev.ItemType {
	case ItemCommandExecution:
		return "$ " + summarize(ev.Content)
	case ItemFileChange:
		return "Edited " + summarize(ev.Content)
	case ItemMCPToolCall, ItemToolCall, ItemToolUse:
		return "Tool: " + summarize(ev.Content)
	case ItemWebSearch:
		return "Searched " + summarize(ev.Content)
	case ItemReasoning:
		return "Thinking"
	case ItemTodoList:
		return "Plan"
	case ItemAgentMessage:
		return summarize(ev.Content)
	}
	switch ev.Type {
	case "turn.completed", "result":
		if ev.IsError {
			return "Turn failed"
		}
		return "Turn completed"
	case "turn.failed":
		return "Turn failed"
	case "error":
		return "Error: " + summarize(ev.Content)
	}
	if ev.Content != "" {
		return summarize(ev.Content)
	}
	return ev.Type
}

// summarize returns the first line of s, shortened for display.
func summarize(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > maxTitleLen {
		return string(r[:maxTitleLen-1]) + "…"
	}
	return s
}
