//go:build unix

package sandbox

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup gives the child its own process group so a timeout
// kills everything it spawned, not just the immediate process.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
