package procattr

import (
	"io"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_ConfiguresProcessGroup(t *testing.T) {
	t.Parallel()
	cmd := exec.Command("echo", "test")
	require.Nil(t, cmd.SysProcAttr)

	Set(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestSet_KeepsExistingAttributes(t *testing.T) {
	t.Parallel()
	cmd := exec.Command("echo", "test")
	cmd.SysProcAttr = &syscall.SysProcAttr{Noctty: true}

	Set(cmd)

	assert.True(t, cmd.SysProcAttr.Noctty)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestSignalGroup_NilProcess(t *testing.T) {
	t.Parallel()
	assert.NoError(t, SignalGroup(nil, syscall.SIGTERM))
	assert.NoError(t, KillGroup(nil))
	assert.NoError(t, Terminate(nil, nil, time.Second))
}

func TestKillGroup_KillsDescendants(t *testing.T) {
	t.Parallel()

	// The shell forks a sleep child that inherits stdout. The pipe only
	// reaches EOF once every holder, the grandchild included, is gone.
	cmd := exec.Command("sh", "-c", "sleep 60 & wait")
	Set(cmd)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	require.NoError(t, KillGroup(cmd.Process))

	drained := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, stdout)
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("descendant still holds stdout open")
	}
	_ = cmd.Wait()
}

func TestKillGroup_ExitedProcessIsNotAnError(t *testing.T) {
	t.Parallel()
	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Wait())

	assert.NoError(t, KillGroup(cmd.Process))
}

func TestTerminate_GracefulExit(t *testing.T) {
	t.Parallel()
	cmd := exec.Command("sleep", "60")
	Set(cmd)
	require.NoError(t, cmd.Start())

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	start := time.Now()
	require.NoError(t, Terminate(cmd.Process, exited, 5*time.Second))
	<-exited
	assert.Less(t, time.Since(start), 5*time.Second, "sleep honours SIGTERM without escalation")
}

func TestTerminate_EscalatesToKill(t *testing.T) {
	t.Parallel()
	cmd := exec.Command("sh", "-c", "trap '' TERM; sleep 60")
	Set(cmd)
	require.NoError(t, cmd.Start())

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	// Give the shell a moment to install its trap.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, Terminate(cmd.Process, exited, 200*time.Millisecond))

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("process survived SIGKILL")
	}
}
