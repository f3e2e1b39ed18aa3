// Package procattr starts tool processes in their own process group so the
// whole tree a tool spawns can be signalled together.
package procattr

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

func ensureAttr(cmd *exec.Cmd) *syscall.SysProcAttr {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	return cmd.SysProcAttr
}

// SignalGroup delivers sig to every process in the group led by p.
// Processes that are already gone are not an error.
func SignalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// KillGroup sends SIGKILL to the process group led by p, taking the tool and
// every descendant it spawned with it.
func KillGroup(p *os.Process) error {
	return SignalGroup(p, syscall.SIGKILL)
}

// Terminate asks the group to exit with SIGTERM and escalates to SIGKILL if
// exited is not closed within grace. It returns once exited is closed or a
// short wait after the SIGKILL has elapsed.
func Terminate(p *os.Process, exited <-chan struct{}, grace time.Duration) error {
	if p == nil {
		return nil
	}
	termErr := SignalGroup(p, syscall.SIGTERM)

	select {
	case <-exited:
		return termErr
	case <-time.After(grace):
	}

	if err := KillGroup(p); err != nil {
		return err
	}
	select {
	case <-exited:
	case <-time.After(100 * time.Millisecond):
	}
	return nil
}
