package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/yoloswe/agentchat/tool"
)

func TestClaudeBuildArguments(t *testing.T) {
	t.Parallel()
	c := Claude{}
	desc := tool.Descriptor{ID: "claude", Command: "claude"}

	assert.Equal(t,
		[]string{"-p", "hi", "--output-format", "stream-json", "--verbose"},
		c.BuildArguments(desc, "hi", SessionContext{Resumption: Fresh{}}))
	assert.Equal(t,
		[]string{"-p", "hi", "--output-format", "stream-json", "--verbose", "--resume", "s-1"},
		c.BuildArguments(desc, "hi", SessionContext{Resumption: Resume{ThreadID: "s-1"}}))
}

func TestClaudeBuildInput(t *testing.T) {
	t.Parallel()
	frame := Claude{}.BuildInput(`say "hi"`, SessionContext{})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(frame), &decoded))
	assert.Equal(t, "user", decoded["type"])
	msg := decoded["message"].(map[string]interface{})
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, `say "hi"`, msg["content"])
}

func TestClaudeParseOutputLine(t *testing.T) {
	t.Parallel()
	c := Claude{}

	t.Run("system init", func(t *testing.T) {
		ev := c.ParseOutputLine(`{"type":"system","subtype":"init","session_id":"sess-1","model":"m"}`)
		require.NotNil(t, ev)
		assert.Equal(t, "system.init", ev.Type)
		assert.Equal(t, "sess-1", c.ExtractSessionID(ev))
	})

	t.Run("assistant text", func(t *testing.T) {
		ev := c.ParseOutputLine(`{"type":"assistant","session_id":"sess-1","message":{"role":"assistant","content":[{"type":"text","text":"Hello "},{"type":"text","text":"world"}]}}`)
		require.NotNil(t, ev)
		assert.Equal(t, ItemAgentMessage, ev.ItemType)
		assert.Equal(t, "Hello world", c.ExtractAssistantMessage(ev))
	})

	t.Run("tool use then result", func(t *testing.T) {
		start := c.ParseOutputLine(`{"type":"assistant","session_id":"s","message":{"role":"assistant","content":[{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"ls"}}]}}`)
		require.NotNil(t, start)
		assert.Equal(t, PhaseStarted, start.Phase)
		assert.Equal(t, "toolu_1", start.ItemID)
		assert.Equal(t, "Bash", start.Content)
		assert.Equal(t, "Bash command=ls", c.EventTitle(start))
		assert.Empty(t, c.ExtractAssistantMessage(start))

		done := c.ParseOutputLine(`{"type":"user","session_id":"s","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"a.go\nb.go"}]}}`)
		require.NotNil(t, done)
		assert.Equal(t, PhaseCompleted, done.Phase)
		assert.Equal(t, "toolu_1", done.ItemID)
		assert.Equal(t, ItemToolUse, done.ItemType)
		assert.Equal(t, "a.go\nb.go", done.Detail)
	})

	t.Run("text alongside tool use", func(t *testing.T) {
		ev := c.ParseOutputLine(`{"type":"assistant","session_id":"s","message":{"role":"assistant","content":[{"type":"text","text":"Let me look at the file."},{"type":"tool_use","id":"toolu_2","name":"Read","input":{"file_path":"main.go"}}]}}`)
		require.NotNil(t, ev)
		assert.Equal(t, ItemToolUse, ev.ItemType)
		assert.Equal(t, "Read", ev.Content)
		assert.Equal(t, "Let me look at the file.", c.ExtractAssistantMessage(ev))
	})

	t.Run("result", func(t *testing.T) {
		ev := c.ParseOutputLine(`{"type":"result","subtype":"success","is_error":false,"result":"ok","session_id":"s","usage":{"input_tokens":3,"cache_read_input_tokens":1,"output_tokens":4}}`)
		require.NotNil(t, ev)
		assert.Equal(t, "result", ev.Type)
		assert.Equal(t, &Usage{InputTokens: 3, CachedInputTokens: 1, OutputTokens: 4}, ev.Usage)
	})

	t.Run("plain text", func(t *testing.T) {
		assert.Nil(t, c.ParseOutputLine("warning: something"))
	})
}

func TestClaudeAssistantTextKeepsProseBeforeToolCalls(t *testing.T) {
	t.Parallel()
	output := `{"type":"assistant","session_id":"s","message":{"role":"assistant","content":[{"type":"text","text":"Let me look at the file."},{"type":"tool_use","id":"toolu_1","name":"Read","input":{"file_path":"main.go"}}]}}
{"type":"user","session_id":"s","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"package main"}]}}
{"type":"assistant","session_id":"s","message":{"role":"assistant","content":[{"type":"text","text":"Done."}]}}
`
	assert.Equal(t, "Let me look at the file.\nDone.", AssistantText(Claude{}, output))
}
