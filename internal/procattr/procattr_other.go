//go:build !linux

package procattr

import "os/exec"

// Set makes cmd lead a new process group. Attributes already on cmd are
// kept.
func Set(cmd *exec.Cmd) {
	ensureAttr(cmd).Setpgid = true
}
