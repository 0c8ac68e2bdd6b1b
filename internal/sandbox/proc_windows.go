//go:build windows

package sandbox

import "os/exec"

// configureProcessGroup kills the immediate child on timeout. Windows has
// no POSIX process groups to signal; grandchildren may outlive the kill.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
}
