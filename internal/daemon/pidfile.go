// Package daemon manages the backup and collection-sync background
// processes: PID files, detached spawning, and the periodic run loop.
// Daemons coordinate with the CLI only through the PID file and the
// shared filesystem.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/clawops/clawctl/internal/log"
)

// WritePID records a process id as plain decimal text.
func WritePID(path string, pid int) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	return nil
}

// ReadPID returns the recorded pid, or ok=false when no PID file
// exists.
func ReadPID(path string) (pid int, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reading pid file: %w", err)
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, true, nil
}

// IsRunning reports whether the daemon recorded in the PID file is
// alive. A PID file pointing at a dead process is removed as a side
// effect, so a crashed daemon never blocks the next start.
func IsRunning(path string) bool {
	pid, ok, err := ReadPID(path)
	if err != nil || !ok {
		return false
	}
	if !processAlive(pid) {
		log.Debug("removing stale pid file", "path", path, "pid", pid)
		os.Remove(path)
		return false
	}
	return true
}

// Stop signals the recorded daemon with SIGTERM and removes the PID
// file. Returns whether a live daemon was actually signaled; a stale
// or missing PID file is not an error.
func Stop(path string) (bool, error) {
	pid, ok, err := ReadPID(path)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	wasRunning := false
	if process, err := os.FindProcess(pid); err == nil {
		if err := process.Signal(syscall.SIGTERM); err == nil {
			wasRunning = true
		}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return wasRunning, fmt.Errorf("removing pid file: %w", err)
	}
	return wasRunning, nil
}

// processAlive probes a pid with signal 0.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
