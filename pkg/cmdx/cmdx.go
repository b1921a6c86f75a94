package cmdx

import (
	"os/exec"
	"time"
)

// RunTimeout starts cmd and waits for it, killing the process when timeout
// elapses first. The boolean reports whether the timeout fired.
func RunTimeout(cmd *exec.Cmd, timeout time.Duration) (error, bool) {
	if err := cmd.Start(); err != nil {
		return err, false
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err, false
	case <-time.After(timeout):
		killErr := cmd.Process.Kill()
		<-done
		if killErr != nil {
			return killErr, true
		}
		return nil, true
	}
}
