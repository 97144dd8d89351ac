package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/config"
	"github.com/clawops/clawctl/internal/log"
	"github.com/clawops/clawctl/internal/paths"
)

// stopTimeoutSeconds gives the instance time to flush state on stop.
const stopTimeoutSeconds = 30

// Client implements Runtime against the Docker daemon.
type Client struct {
	cli      *client.Client
	cfg      *config.Config
	paths    *paths.Resolver
	buildOut io.Writer
}

// New connects to the Docker daemon. DOCKER_HOST wins; otherwise
// well-known socket paths are probed for setups (colima, Docker
// Desktop) that don't link /var/run/docker.sock.
func New(cfg *config.Config) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host := discoverHost(); host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Client{
		cli:      cli,
		cfg:      cfg,
		paths:    cfg.Paths(),
		buildOut: os.Stdout,
	}, nil
}

// discoverHost returns a DOCKER_HOST override, or "" to let the SDK
// use its default.
func discoverHost() string {
	if os.Getenv("DOCKER_HOST") != "" {
		return ""
	}
	if _, err := os.Stat("/var/run/docker.sock"); err == nil {
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{
		filepath.Join(home, ".colima", "default", "docker.sock"),
		filepath.Join(home, ".docker", "run", "docker.sock"),
	}
	for _, sock := range candidates {
		if _, err := os.Stat(sock); err == nil {
			return "unix://" + sock
		}
	}
	return ""
}

// Ping verifies the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon not accessible: %w", err)
	}
	return nil
}

// Close releases the Docker client connection.
func (c *Client) Close() error {
	return c.cli.Close()
}

// ImageExists reports whether the configured image tag is built.
func (c *Client) ImageExists(ctx context.Context) (bool, error) {
	tag := c.cfg.Clawctl.ImageTag()
	_, err := c.cli.ImageInspect(ctx, tag)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspecting image %s: %w", tag, err)
	}
	return true, nil
}

// EnsureNetwork creates the user's bridge network if it does not exist.
func (c *Client) EnsureNetwork(ctx context.Context, username string) error {
	name := NetworkName(username)
	_, err := c.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil && !errdefs.IsConflict(err) {
		return fmt.Errorf("creating network %s: %w", name, err)
	}
	return nil
}

// RemoveNetwork removes the user's network, tolerating absence.
func (c *Client) RemoveNetwork(ctx context.Context, username string) error {
	name := NetworkName(username)
	if err := c.cli.NetworkRemove(ctx, name); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("removing network %s: %w", name, err)
	}
	return nil
}

// CreateContainer creates (without starting) the user's container:
// openclaw state and local config mounted read-write, secrets read-only
// at /run/secrets, the gateway port published to an ephemeral host
// port, restart policy unless-stopped.
func (c *Client) CreateContainer(ctx context.Context, user *config.User) error {
	if err := c.EnsureNetwork(ctx, user.Name); err != nil {
		return err
	}
	if err := c.prepareMountDirs(user.Name); err != nil {
		return err
	}

	mounts := []mount.Mount{
		{Type: mount.TypeBind, Source: c.paths.UserOpenclawDir(user.Name), Target: "/home/node/.openclaw"},
		// ~/.config persists tool credentials (gog keyring) across restarts.
		{Type: mount.TypeBind, Source: c.paths.UserConfigDir(user.Name), Target: "/home/node/.config"},
		{Type: mount.TypeBind, Source: c.paths.UserSecretsDir(user.Name), Target: "/run/secrets", ReadOnly: true},
	}
	if dir := c.knowledgeDir(); dir != "" {
		mounts = append(mounts, mount.Mount{
			Type: mount.TypeBind, Source: dir, Target: "/mnt/knowledge", ReadOnly: true,
		})
	}

	gatewayPort := nat.Port(fmt.Sprintf("%d/tcp", GatewayContainerPort))
	_, err := c.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        c.cfg.Clawctl.ImageTag(),
			User:         "1000:1000",
			ExposedPorts: nat.PortSet{gatewayPort: struct{}{}},
		},
		&container.HostConfig{
			Mounts:      mounts,
			NetworkMode: container.NetworkMode(NetworkName(user.Name)),
			PortBindings: nat.PortMap{
				// Empty HostPort lets Docker pick an ephemeral port.
				gatewayPort: []nat.PortBinding{{HostPort: ""}},
			},
			RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		},
		nil, // network config
		nil, // platform
		ContainerName(user.Name),
	)
	if err != nil {
		return fmt.Errorf("creating container for %s: %w", user.Name, err)
	}
	return nil
}

// prepareMountDirs ensures the bind-mount sources exist and are usable
// by the container user. The chown is best effort; the deployment
// script owns permissions when clawctl runs unprivileged.
func (c *Client) prepareMountDirs(username string) error {
	openclawDir := c.paths.UserOpenclawDir(username)
	workspaceDir := c.paths.UserWorkspaceDir(username)
	for _, dir := range []string{openclawDir, workspaceDir, c.paths.UserConfigDir(username), c.paths.UserSecretsDir(username)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating mount dir %s: %w", dir, err)
		}
	}
	if out, err := exec.Command("chown", "-R", "1000:1000", openclawDir).CombinedOutput(); err != nil {
		log.Debug("chown of openclaw dir failed", "dir", openclawDir, "output", string(out))
	}
	_ = os.Chmod(openclawDir, 0o775)
	_ = os.Chmod(workspaceDir, 0o775)
	return nil
}

// knowledgeDir resolves the optional shared knowledge mount source.
// Relative paths are anchored at the data root; a missing directory
// disables the mount.
func (c *Client) knowledgeDir() string {
	dir := c.cfg.Clawctl.KnowledgeDir
	if dir == "" {
		return ""
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.paths.DataRoot(), dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

// StartContainer starts the user's container.
func (c *Client) StartContainer(ctx context.Context, username string) error {
	if err := c.cli.ContainerStart(ctx, ContainerName(username), container.StartOptions{}); err != nil {
		return fmt.Errorf("starting container for %s: %w", username, err)
	}
	return nil
}

// StopContainer stops the user's container, tolerating absence.
func (c *Client) StopContainer(ctx context.Context, username string) error {
	timeout := stopTimeoutSeconds
	err := c.cli.ContainerStop(ctx, ContainerName(username), container.StopOptions{Timeout: &timeout})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("stopping container for %s: %w", username, err)
	}
	return nil
}

// RestartContainer restarts the user's container.
func (c *Client) RestartContainer(ctx context.Context, username string) error {
	timeout := stopTimeoutSeconds
	err := c.cli.ContainerRestart(ctx, ContainerName(username), container.StopOptions{Timeout: &timeout})
	if err != nil {
		return fmt.Errorf("restarting container for %s: %w", username, err)
	}
	return nil
}

// RemoveContainer stops and removes the user's container, tolerating
// absence.
func (c *Client) RemoveContainer(ctx context.Context, username string) error {
	name := ContainerName(username)
	timeout := stopTimeoutSeconds
	if err := c.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("stopping container for %s: %w", username, err)
	}
	if err := c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("removing container for %s: %w", username, err)
	}
	return nil
}

// ContainerExists reports whether the user's container exists in any
// state.
func (c *Client) ContainerExists(ctx context.Context, username string) (bool, error) {
	status, err := c.Status(ctx, username)
	if err != nil {
		return false, err
	}
	return status != StatusAbsent, nil
}

// Status returns the container's state, StatusAbsent when it does not
// exist.
func (c *Client) Status(ctx context.Context, username string) (Status, error) {
	inspect, err := c.cli.ContainerInspect(ctx, ContainerName(username))
	if err != nil {
		if errdefs.IsNotFound(err) {
			return StatusAbsent, nil
		}
		return StatusUnknown, fmt.Errorf("inspecting container for %s: %w", username, err)
	}
	if inspect.State == nil {
		return StatusUnknown, nil
	}
	return parseStatus(inspect.State.Status), nil
}

// HostPort returns the host port mapped to the gateway port, or 0 when
// the container is absent or the port is unmapped.
func (c *Client) HostPort(ctx context.Context, username string) (int, error) {
	inspect, err := c.cli.ContainerInspect(ctx, ContainerName(username))
	if err != nil {
		if errdefs.IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("inspecting container for %s: %w", username, err)
	}
	if inspect.NetworkSettings == nil {
		return 0, nil
	}
	gatewayPort := nat.Port(fmt.Sprintf("%d/tcp", GatewayContainerPort))
	bindings := inspect.NetworkSettings.Ports[gatewayPort]
	if len(bindings) == 0 {
		return 0, nil
	}
	port, err := strconv.Atoi(bindings[0].HostPort)
	if err != nil {
		return 0, nil
	}
	return port, nil
}

// InstanceStatuses returns the status and host port of every configured
// user, keyed by username.
func (c *Client) InstanceStatuses(ctx context.Context) (map[string]InstanceStatus, error) {
	result := make(map[string]InstanceStatus, len(c.cfg.Users))
	for _, name := range c.cfg.Usernames() {
		status, err := c.Status(ctx, name)
		if err != nil {
			return nil, err
		}
		var port int
		if status == StatusRunning {
			if port, err = c.HostPort(ctx, name); err != nil {
				return nil, err
			}
		}
		result[name] = InstanceStatus{Status: status, Port: port}
	}
	return result, nil
}

// Logs streams container log lines. Containers run without a TTY, so
// Docker's multiplexed stream is demuxed into plain text.
func (c *Client) Logs(ctx context.Context, username string, opts LogOptions) (io.ReadCloser, error) {
	tail := "all"
	if opts.Tail > 0 {
		tail = strconv.Itoa(opts.Tail)
	}
	reader, err := c.cli.ContainerLogs(ctx, ContainerName(username), container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       tail,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, clawerr.NotFound("no container for user %s", username)
		}
		return nil, fmt.Errorf("streaming logs for %s: %w", username, err)
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, reader)
		reader.Close()
		pw.CloseWithError(err)
	}()
	return &logStream{PipeReader: pr, src: reader}, nil
}

// logStream closes both the pipe and the underlying Docker connection,
// which is how a follower cancels the stream.
type logStream struct {
	*io.PipeReader
	src io.Closer
}

func (s *logStream) Close() error {
	s.src.Close()
	return s.PipeReader.Close()
}

// Exec runs a command inside the running container and returns the
// exit code and combined output. Exec is impossible while Docker is
// restarting a crashing container, so that state is reported as a
// conflict the caller can retry later.
func (c *Client) Exec(ctx context.Context, username string, cmd []string, env []string) (int, string, error) {
	name := ContainerName(username)

	status, err := c.Status(ctx, username)
	if err != nil {
		return -1, "", err
	}
	switch status {
	case StatusAbsent:
		return -1, "", clawerr.NotFound("no container for user %s", username)
	case StatusRestarting:
		return -1, "", clawerr.Conflict("container %s is restarting; wait for it to be running or check its logs", name)
	}

	execID, err := c.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		Env:          env,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, "", fmt.Errorf("creating exec in %s: %w", name, err)
	}

	resp, err := c.cli.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, "", fmt.Errorf("attaching exec in %s: %w", name, err)
	}
	defer resp.Close()

	var combined bytes.Buffer
	if _, err := stdcopy.StdCopy(&combined, &combined, resp.Reader); err != nil {
		return -1, "", fmt.Errorf("reading exec output: %w", err)
	}

	inspect, err := c.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return -1, "", fmt.Errorf("inspecting exec: %w", err)
	}
	return inspect.ExitCode, combined.String(), nil
}
