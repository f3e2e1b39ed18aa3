package adapter

// Phase normalizes the lifecycle position of an event across tool families.
type Phase string

const (
	PhaseNone      Phase = ""
	PhaseStarted   Phase = "started"
	PhaseUpdated   Phase = "updated"
	PhaseCompleted Phase = "completed"
)

// Item types shared by the adapters. Tool families that use other names are
// mapped onto these where the meaning matches.
const (
	ItemAgentMessage     = "agent_message"
	ItemReasoning        = "reasoning"
	ItemCommandExecution = "command_execution"
	ItemFileChange       = "file_change"
	ItemMCPToolCall      = "mcp_tool_call"
	ItemWebSearch        = "web_search"
	ItemTodoList         = "todo_list"
	ItemToolCall         = "tool_call"
	ItemToolUse          = "tool_use"
)

// Usage is token accounting reported at the end of a turn.
type Usage struct {
	InputTokens       int `json:"inputTokens"`
	CachedInputTokens int `json:"cachedInputTokens"`
	OutputTokens      int `json:"outputTokens"`
}

// Event is one parsed line of tool output. Text carries assistant prose that
// arrived in the same message as a tool call.
type Event struct {
	Usage     *Usage `json:"usage,omitempty"`
	Type      string `json:"type"`
	ItemType  string `json:"itemType,omitempty"`
	ItemID    string `json:"itemId,omitempty"`
	Phase     Phase  `json:"phase,omitempty"`
	Content   string `json:"content,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Text      string `json:"text,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	IsError   bool   `json:"isError,omitempty"`
	IsUnknown bool   `json:"isUnknown,omitempty"`
}
