//go:build windows

package process

import "os/exec"

func killProcessGroupOnCancel(cmd *exec.Cmd) {}
