//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// The runner spawns simulators and helper tools: a timeout has to take the whole tree down.
func killProcessGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
