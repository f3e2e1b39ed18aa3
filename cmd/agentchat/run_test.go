package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/orchestrator"
	"github.com/bazelment/yoloswe/agentchat/runner"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

// scriptedCodex speaks the codex protocol but runs a shell script.
type scriptedCodex struct {
	adapter.Codex
	script string
}

func (scriptedCodex) Name() string { return "scripted" }

func (s scriptedCodex) BuildArguments(tool.Descriptor, string, adapter.SessionContext) []string {
	return []string{"-c", s.script}
}

const codexTurn = `printf '%s\n' \
'{"type":"thread.started","thread_id":"th-1"}' \
'{"type":"item.started","item":{"id":"c1","type":"command_execution","command":"ls"}}' \
'{"type":"item.completed","item":{"id":"c1","type":"command_execution","command":"ls","aggregated_output":"a.txt","exit_code":0}}' \
'{"type":"item.completed","item":{"id":"m1","type":"agent_message","text":"All done"}}' \
'{"type":"turn.completed","usage":{"input_tokens":3,"output_tokens":4}}'`

func newTestExecutor(t *testing.T, tools ...tool.Descriptor) *orchestrator.Executor {
	t.Helper()
	reg, err := tool.NewRegistry(tools...)
	require.NoError(t, err)
	adapters := adapter.DefaultRegistry()
	adapters.Register(scriptedCodex{script: codexTurn})
	e := orchestrator.New(reg,
		orchestrator.WithAdapters(adapters),
		orchestrator.WithWorkspaces(orchestrator.DirWorkspaces{Root: t.TempDir()}),
	)
	t.Cleanup(e.Close)
	return e
}

func TestTurnRawOutput(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(t, tool.Descriptor{
		ID:               "echo",
		Command:          "sh",
		ArgumentTemplate: "-c " + runner.Quote("echo you said {prompt}"),
		Enabled:          true,
	})

	var out bytes.Buffer
	tr := &turn{exec: e, out: &out, render: newRenderer(true), toolID: "echo", session: "s1", events: true}
	require.NoError(t, tr.run(context.Background(), "hello"))
	assert.Equal(t, "you said hello\n", out.String())
}

func TestTurnEventsView(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(t, tool.Descriptor{ID: "codex-test", Command: "sh", Adapter: "scripted", Enabled: true})

	var out bytes.Buffer
	tr := &turn{exec: e, out: &out, render: newRenderer(true), toolID: "codex-test", session: "s1", events: true}
	require.NoError(t, tr.run(context.Background(), "list files"))

	assert.Equal(t, "  thread.started\n"+
		"▸ $ ls\n"+
		"  All done\n"+
		"▸ Turn completed (3 in, 4 out)\n"+
		"All done\n", out.String())

	thread, ok := e.ThreadID("s1")
	require.True(t, ok)
	assert.Equal(t, "th-1", thread)
}

func TestTurnReportsFailure(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(t)

	var out bytes.Buffer
	tr := &turn{exec: e, out: &out, render: newRenderer(true), toolID: "nope", session: "s1"}
	err := tr.run(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, `tool "nope" not found`, err.Error())
	assert.Empty(t, out.String())
}
