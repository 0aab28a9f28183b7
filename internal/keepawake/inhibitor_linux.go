//go:build linux

package keepawake

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// NewDefaultAdapter holds a logind idle and sleep inhibitor lock while a
// placeholder tail runs. tail exits when the host process does, which drops
// the lock.
func NewDefaultAdapter() Adapter {
	return &processAdapter{
		name: "systemd-inhibit",
		args: []string{
			"--what=idle:sleep",
			"--who=stagehand",
			"--why=Presentation is live",
			"--mode=block",
			"tail", "--pid=" + strconv.Itoa(os.Getpid()), "-f", "/dev/null",
		},
		configure: func(cmd *exec.Cmd) {
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		},
		// Signal the whole group so the placeholder goes too.
		stop: func(p *os.Process) error {
			return syscall.Kill(-p.Pid, syscall.SIGTERM)
		},
	}
}
