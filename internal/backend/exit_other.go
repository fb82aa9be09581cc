//go:build !unix

package backend

import (
	"fmt"
	"os"
)

func describeExit(state *os.ProcessState) string {
	return fmt.Sprintf("qstat exited with code %d", state.ExitCode())
}
