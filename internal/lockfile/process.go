package lockfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ProcessAlive reports whether a process with the given PID exists. It sends
// the null signal; EPERM still means the process exists, only ESRCH (or an
// invalid PID) means it is gone.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
