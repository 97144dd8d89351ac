package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/clawops/clawctl/internal/audit"
	"github.com/clawops/clawctl/internal/config"
	"github.com/clawops/clawctl/internal/daemon"
	"github.com/clawops/clawctl/internal/docker"
	"github.com/clawops/clawctl/internal/log"
	"github.com/clawops/clawctl/internal/provision"
)

// loadConfig loads and validates clawctl.yaml, resolving the path from
// the --config flag, $CLAWCTL_CONFIG, or the working directory.
func loadConfig() (*config.Config, error) {
	return config.Load(config.FindPath(configFlag))
}

// newRuntime connects to Docker and verifies the daemon is reachable.
func newRuntime(cfg *config.Config) (*docker.Client, error) {
	client, err := docker.New(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newOrchestrator wires up the full provisioning stack. The audit
// store is best effort: a failure to open it degrades to no event
// recording rather than blocking operations.
func newOrchestrator(cfg *config.Config, runtime docker.Runtime) *provision.Orchestrator {
	store, err := audit.Open(cfg.Paths().AuditDB())
	if err != nil {
		log.Warn("audit log unavailable", "error", err)
		store = nil
	}
	return provision.New(cfg, runtime, store)
}

// configPath returns the absolute config file path, suitable for
// passing to a daemon that runs with / as its working directory.
func configPath() string {
	path := config.FindPath(configFlag)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// printDaemonStatus reports one daemon's liveness from its PID file.
func printDaemonStatus(name, pidPath string) {
	if daemon.IsRunning(pidPath) {
		pid, _, _ := daemon.ReadPID(pidPath)
		fmt.Printf("%s running (pid %d)\n", name, pid)
	} else {
		fmt.Printf("%s not running\n", name)
	}
}

// promptSecret reads a secret value, hiding input when stdin is a
// terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(value)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// confirm prompts for yes/no. Returns true only for an explicit yes.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
