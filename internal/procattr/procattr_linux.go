//go:build linux

package procattr

import (
	"os/exec"
	"syscall"
)

// Set makes cmd lead a new process group and, on Linux, receive SIGTERM
// when agentchat dies. Attributes already on cmd are kept.
func Set(cmd *exec.Cmd) {
	attr := ensureAttr(cmd)
	attr.Setpgid = true
	attr.Pdeathsig = syscall.SIGTERM
}
