package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/stream"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

func drain(t *testing.T, ch <-chan stream.Chunk, within time.Duration) []stream.Chunk {
	t.Helper()
	var out []stream.Chunk
	deadline := time.After(within)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		case <-deadline:
			t.Fatalf("sequence did not end within %s", within)
			return out
		}
	}
}

func shellTool(script string, timeoutSeconds int) tool.Descriptor {
	return tool.Descriptor{
		ID:               "sh",
		Command:          "sh",
		ArgumentTemplate: "-c " + Quote(script),
		TimeoutSeconds:   timeoutSeconds,
		Enabled:          true,
	}
}

func newRequest(desc tool.Descriptor, prompt string) Request {
	return Request{
		Tool:    desc,
		Prompt:  prompt,
		Session: adapter.SessionContext{SessionID: "s1", Resumption: adapter.Fresh{}},
	}
}

func TestOneShotEchoTool(t *testing.T) {
	t.Parallel()
	desc := tool.Descriptor{ID: "echo-tool", Command: "echo", ArgumentTemplate: "{prompt}", Enabled: true}

	chunks := drain(t, NewOneShot().Run(context.Background(), newRequest(desc, "hi")), 5*time.Second)
	require.Len(t, chunks, 2)
	assert.Equal(t, stream.Chunk{Content: "hi\n", Source: stream.Stdout}, chunks[0])
	assert.Equal(t, stream.Completed(), chunks[1])
}

func TestOneShotMultiplexesBothStreams(t *testing.T) {
	t.Parallel()
	script := `for i in 1 2 3; do echo out$i; done; for i in 1 2; do echo err$i >&2; done`

	chunks := drain(t, NewOneShot().Run(context.Background(), newRequest(shellTool(script, 0), "")), 5*time.Second)
	require.Len(t, chunks, 6)

	var outs, errs []string
	for _, c := range chunks[:5] {
		assert.False(t, c.IsCompleted)
		if c.Source == stream.Stdout {
			outs = append(outs, c.Content)
		} else {
			errs = append(errs, c.Content)
		}
	}
	assert.Equal(t, []string{"out1\n", "out2\n", "out3\n"}, outs)
	assert.Equal(t, []string{"err1\n", "err2\n"}, errs)
	assert.True(t, chunks[5].IsCompleted)
	assert.False(t, chunks[5].IsError)
}

func TestOneShotNonZeroExitIsNotAnError(t *testing.T) {
	t.Parallel()
	chunks := drain(t, NewOneShot().Run(context.Background(), newRequest(shellTool("echo oops >&2; exit 3", 0), "")), 5*time.Second)
	require.Len(t, chunks, 2)
	assert.Equal(t, "oops\n", chunks[0].Content)
	assert.Equal(t, stream.Completed(), chunks[1])
}

func TestOneShotTimeoutKillsProcessTree(t *testing.T) {
	t.Parallel()
	// The background sleep keeps the pipes open, so the sequence can only
	// end promptly if the whole group was killed.
	script := `sleep 60 & echo started; wait`

	start := time.Now()
	chunks := drain(t, NewOneShot().Run(context.Background(), newRequest(shellTool(script, 1), "")), 4*time.Second)
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	assert.True(t, last.IsError)
	assert.True(t, last.IsCompleted)
	assert.Equal(t, "timed out after 1s", last.ErrorMessage)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, "started\n", chunks[0].Content)
}

func TestOneShotCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewOneShot(WithKillGrace(100*time.Millisecond)).Run(ctx, newRequest(shellTool(`echo ready; sleep 60`, 30), ""))
	first := <-ch
	assert.Equal(t, "ready\n", first.Content)

	cancel()
	rest := drain(t, ch, 4*time.Second)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].IsError)
	assert.Equal(t, ErrCancelled.Error(), rest[0].ErrorMessage)
	assert.NotContains(t, rest[0].ErrorMessage, "timed out")
}

func TestOneShotMissingExecutable(t *testing.T) {
	t.Parallel()
	desc := tool.Descriptor{ID: "ghost", Command: "definitely-not-a-real-binary-xyz", Enabled: true}
	chunks := drain(t, NewOneShot().Run(context.Background(), newRequest(desc, "x")), 5*time.Second)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsError)
	assert.True(t, chunks[0].IsCompleted)
	assert.Contains(t, chunks[0].ErrorMessage, "not found")
}

func TestOneShotUsesWorkDirAndEnv(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	req := newRequest(shellTool(`pwd; echo "$GREETING"`, 0), "")
	req.Session.WorkDir = dir
	req.Env = map[string]string{"GREETING": "hello"}

	chunks := drain(t, NewOneShot().Run(context.Background(), req), 5*time.Second)
	require.Len(t, chunks, 3)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(chunks[0].Content), strings.TrimPrefix(dir, "/private")))
	assert.Equal(t, "hello\n", chunks[1].Content)
}
