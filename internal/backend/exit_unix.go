//go:build unix

package backend

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func describeExit(state *os.ProcessState) string {
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return fmt.Sprintf("qstat killed by signal %s", unix.SignalName(status.Signal()))
	}

	return fmt.Sprintf("qstat exited with code %d", state.ExitCode())
}
