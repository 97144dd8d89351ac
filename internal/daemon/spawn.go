package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/clawops/clawctl/internal/clawerr"
)

// Start spawns a detached daemon process re-invoking the current
// binary with args (for example ["_backupd", "--config", path]) and
// records its pid. The child gets its own session, /dev/null for
// stdin, and the named log file for stdout/stderr, so it survives the
// parent's terminal going away. Rejects when the PID file already
// points at a live daemon.
func Start(pidPath string, args []string, logPath string) (int, error) {
	if IsRunning(pidPath) {
		pid, _, _ := ReadPID(pidPath)
		return 0, clawerr.Conflict("daemon already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolving executable: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pidPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating pid file dir: %w", err)
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return 0, fmt.Errorf("opening /dev/null: %w", err)
	}
	defer devNull.Close()

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logFile = devNull // discard output rather than passing nil fds
	}

	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   os.Environ(),
		Files: []*os.File{devNull, logFile, logFile},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}

	proc, err := os.StartProcess(exe, append([]string{exe}, args...), attr)
	if logFile != devNull {
		logFile.Close() // child inherited the fd
	}
	if err != nil {
		return 0, fmt.Errorf("starting daemon: %w", err)
	}
	_ = proc.Release()

	if err := WritePID(pidPath, proc.Pid); err != nil {
		return 0, err
	}
	return proc.Pid, nil
}
