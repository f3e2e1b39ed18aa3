package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/yoloswe/agentchat/tool"
)

func TestCodexBuildArguments(t *testing.T) {
	t.Parallel()
	c := Codex{}
	desc := tool.Descriptor{ID: "codex", Command: "codex"}

	fresh := c.BuildArguments(desc, "fix it", SessionContext{Resumption: Fresh{}, WorkDir: "/ws/s1"})
	assert.Equal(t, []string{"exec", "--json", "--skip-git-repo-check", "-C", "/ws/s1", "fix it"}, fresh)

	resumed := c.BuildArguments(desc, "again", SessionContext{Resumption: Resume{ThreadID: "th-1"}})
	assert.Equal(t, []string{"exec", "--json", "--skip-git-repo-check", "resume", "th-1", "again"}, resumed)
}

func TestCodexParseOutputLine(t *testing.T) {
	t.Parallel()
	c := Codex{}

	tests := []struct {
		want *Event
		name string
		line string
	}{
		{
			name: "not json",
			line: "Reading prompt from stdin...",
			want: nil,
		},
		{
			name: "thread started",
			line: `{"type":"thread.started","thread_id":"0199a213-81c0-7800-8aa1-bbab2a035a53"}`,
			want: &Event{Type: "thread.started", SessionID: "0199a213-81c0-7800-8aa1-bbab2a035a53"},
		},
		{
			name: "command started",
			line: `{"type":"item.started","item":{"id":"item_1","type":"command_execution","command":"bash -lc ls","aggregated_output":"","status":"in_progress"}}`,
			want: &Event{Type: "item.started", ItemType: ItemCommandExecution, ItemID: "item_1", Phase: PhaseStarted, Content: "bash -lc ls"},
		},
		{
			name: "command failed",
			line: `{"type":"item.completed","item":{"id":"item_1","type":"command_execution","command":"false","aggregated_output":"","exit_code":1,"status":"failed"}}`,
			want: &Event{Type: "item.completed", ItemType: ItemCommandExecution, ItemID: "item_1", Phase: PhaseCompleted, Content: "false", IsError: true},
		},
		{
			name: "agent message",
			line: `{"type":"item.completed","item":{"id":"item_3","type":"agent_message","text":"Done."}}`,
			want: &Event{Type: "item.completed", ItemType: ItemAgentMessage, ItemID: "item_3", Phase: PhaseCompleted, Content: "Done."},
		},
		{
			name: "file change",
			line: `{"type":"item.completed","item":{"id":"item_4","type":"file_change","changes":[{"path":"a.go","kind":"update"},{"path":"b.go","kind":"add"}],"status":"completed"}}`,
			want: &Event{Type: "item.completed", ItemType: ItemFileChange, ItemID: "item_4", Phase: PhaseCompleted, Content: "a.go, b.go"},
		},
		{
			name: "turn completed with usage",
			line: `{"type":"turn.completed","usage":{"input_tokens":24763,"cached_input_tokens":24448,"output_tokens":122}}`,
			want: &Event{Type: "turn.completed", Usage: &Usage{InputTokens: 24763, CachedInputTokens: 24448, OutputTokens: 122}},
		},
		{
			name: "turn failed",
			line: `{"type":"turn.failed","error":{"message":"rate limited"}}`,
			want: &Event{Type: "turn.failed", Content: "rate limited", IsError: true},
		},
		{
			name: "unknown type",
			line: `{"type":"something.new"}`,
			want: &Event{Type: "something.new", IsUnknown: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ParseOutputLine(tt.line))
		})
	}
}

func TestCodexExtractors(t *testing.T) {
	t.Parallel()
	c := Codex{}

	ev := c.ParseOutputLine(`{"type":"thread.started","thread_id":"abc"}`)
	require.NotNil(t, ev)
	assert.Equal(t, "abc", c.ExtractSessionID(ev))
	assert.Empty(t, c.ExtractAssistantMessage(ev))

	msg := c.ParseOutputLine(`{"type":"item.completed","item":{"id":"i","type":"agent_message","text":"hello"}}`)
	assert.Equal(t, "hello", c.ExtractAssistantMessage(msg))
	assert.Empty(t, c.ExtractSessionID(msg))
}

func TestCodexEventTitle(t *testing.T) {
	t.Parallel()
	c := Codex{}
	assert.Equal(t, "$ go test ./...", c.EventTitle(&Event{ItemType: ItemCommandExecution, Content: "go test ./...\nmore"}))
	assert.Equal(t, "Turn completed (10 in, 2 out)", c.EventTitle(&Event{Type: "turn.completed", Usage: &Usage{InputTokens: 10, OutputTokens: 2}}))
	assert.Equal(t, "Turn failed", c.EventTitle(&Event{Type: "turn.failed"}))
}
