// Package docker is the container runtime adapter: it owns every
// interaction with the Docker daemon for user instances (image, network,
// container lifecycle, logs, exec, stats).
package docker

import (
	"context"
	"io"

	"github.com/clawops/clawctl/internal/config"
)

// GatewayContainerPort is the port the gateway listens on inside the
// container; Docker maps it to an ephemeral host port.
const GatewayContainerPort = 18789

// Runtime is the narrow contract the orchestrator and daemons consume.
// Client implements it against the Docker daemon; tests substitute a
// fake.
type Runtime interface {
	// ImageExists reports whether the configured image tag is built.
	ImageExists(ctx context.Context) (bool, error)

	// BuildImage builds the configured image tag, streaming build
	// output. A failed build returns an error; it is never silent.
	BuildImage(ctx context.Context) error

	// EnsureNetwork creates the user's bridge network if absent.
	EnsureNetwork(ctx context.Context, username string) error

	// RemoveNetwork removes the user's network, tolerating absence.
	RemoveNetwork(ctx context.Context, username string) error

	// CreateContainer creates (but does not start) the user's
	// container with its mounts, port mapping, and restart policy.
	CreateContainer(ctx context.Context, user *config.User) error

	StartContainer(ctx context.Context, username string) error
	StopContainer(ctx context.Context, username string) error
	RestartContainer(ctx context.Context, username string) error

	// RemoveContainer stops and removes the container, tolerating
	// absence.
	RemoveContainer(ctx context.Context, username string) error

	// ContainerExists reports whether the user's container exists in
	// any state.
	ContainerExists(ctx context.Context, username string) (bool, error)

	// Status returns the container's state. An absent container is
	// StatusAbsent, not an error.
	Status(ctx context.Context, username string) (Status, error)

	// HostPort returns the host port mapped to the gateway port, or 0
	// when the container is absent or unmapped.
	HostPort(ctx context.Context, username string) (int, error)

	// Logs streams container log lines, demultiplexed to plain text.
	// With Follow the stream does not end until the caller closes it
	// or the container stops.
	Logs(ctx context.Context, username string, opts LogOptions) (io.ReadCloser, error)

	// Exec runs a command inside the running container and returns
	// its exit code and combined output. A restarting container is a
	// conflict error, not a generic failure.
	Exec(ctx context.Context, username string, cmd []string, env []string) (int, string, error)

	// Stats returns a one-shot resource usage sample.
	Stats(ctx context.Context, username string) (*Stats, error)
}

// LogOptions controls log streaming.
type LogOptions struct {
	Follow bool
	Tail   int // 0 means all
}

// Stats is one resource usage sample for a running container.
type Stats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsage   uint64  `json:"memory_usage"`
	MemoryLimit   uint64  `json:"memory_limit"`
	MemoryPercent float64 `json:"memory_percent"`
	NetworkRx     uint64  `json:"network_rx"`
	NetworkTx     uint64  `json:"network_tx"`
}

// InstanceStatus pairs a container status with its mapped host port,
// as shown by `clawctl status`.
type InstanceStatus struct {
	Status Status
	Port   int
}
