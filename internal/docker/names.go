package docker

import "fmt"

const (
	containerPrefix = "openclaw"
	networkPrefix   = "openclaw-net"
)

// ContainerName returns the container name for a user instance.
func ContainerName(username string) string {
	return fmt.Sprintf("%s-%s", containerPrefix, username)
}

// NetworkName returns the per-user bridge network name.
func NetworkName(username string) string {
	return fmt.Sprintf("%s-%s", networkPrefix, username)
}

// Status is the observable state of a user's container. A container
// that does not exist reports StatusAbsent, never an error.
type Status string

const (
	StatusAbsent     Status = "absent"
	StatusCreated    Status = "created"
	StatusRunning    Status = "running"
	StatusRestarting Status = "restarting"
	StatusPaused     Status = "paused"
	StatusExited     Status = "exited"
	StatusUnknown    Status = "unknown"
)

// parseStatus maps Docker's inspect state string onto the Status enum.
func parseStatus(state string) Status {
	switch state {
	case "created":
		return StatusCreated
	case "running":
		return StatusRunning
	case "restarting":
		return StatusRestarting
	case "paused":
		return StatusPaused
	case "exited", "dead", "removing":
		return StatusExited
	default:
		return StatusUnknown
	}
}
