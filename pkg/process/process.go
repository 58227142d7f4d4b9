package process

import (
	"os"
	"syscall"
)

// IsProcessAlive checks if a process with the given PID is still running.
// It uses a signal-sending method that is cross-platform for Unix-like systems (macOS, Linux).
func IsProcessAlive(pid int) bool {
	// PID 0 or less is invalid.
	if pid <= 0 {
		return false
	}

	// Find the process. This doesn't fail on Unix if the process doesn't exist.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks for existence. EPERM still means the process exists.
	err = process.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Terminate sends sig to pid. A process that already exited is not an error.
func Terminate(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(sig); err != nil && err != os.ErrProcessDone {
		if errno, ok := err.(syscall.Errno); ok && errno == syscall.ESRCH {
			return nil
		}
		return err
	}
	return nil
}

// LivePIDs returns the subset of pids that are still running, in order.
func LivePIDs(pids ...int) []int {
	var alive []int
	for _, pid := range pids {
		if IsProcessAlive(pid) {
			alive = append(alive, pid)
		}
	}
	return alive
}

// SignalName returns the conventional name of a signal, e.g. "SIGTERM".
func SignalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGQUIT:
		return "SIGQUIT"
	}
	return sig.String()
}
