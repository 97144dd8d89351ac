package docker

import (
	"context"

	"github.com/clawops/clawctl/internal/log"
)

// StartAll starts every configured user's existing container and
// returns the usernames started. Users without a container are skipped.
func (c *Client) StartAll(ctx context.Context) ([]string, error) {
	var started []string
	for i := range c.cfg.Users {
		name := c.cfg.Users[i].Name
		exists, err := c.ContainerExists(ctx, name)
		if err != nil {
			return started, err
		}
		if !exists {
			continue
		}
		if err := c.StartContainer(ctx, name); err != nil {
			return started, err
		}
		started = append(started, name)
	}
	return started, nil
}

// StopAll stops every configured user's existing container and returns
// the usernames stopped.
func (c *Client) StopAll(ctx context.Context) ([]string, error) {
	var stopped []string
	for i := range c.cfg.Users {
		name := c.cfg.Users[i].Name
		exists, err := c.ContainerExists(ctx, name)
		if err != nil {
			return stopped, err
		}
		if !exists {
			continue
		}
		if err := c.StopContainer(ctx, name); err != nil {
			return stopped, err
		}
		stopped = append(stopped, name)
	}
	return stopped, nil
}

// RebuildAll rebuilds the image and recreates every existing container
// against it, restarting the ones that were running. Returns the
// usernames updated.
func (c *Client) RebuildAll(ctx context.Context) ([]string, error) {
	if err := c.BuildImage(ctx); err != nil {
		return nil, err
	}

	var updated []string
	for i := range c.cfg.Users {
		user := &c.cfg.Users[i]
		exists, err := c.ContainerExists(ctx, user.Name)
		if err != nil {
			return updated, err
		}
		if !exists {
			continue
		}

		status, err := c.Status(ctx, user.Name)
		if err != nil {
			return updated, err
		}
		wasRunning := status == StatusRunning

		if err := c.RemoveContainer(ctx, user.Name); err != nil {
			return updated, err
		}
		if err := c.CreateContainer(ctx, user); err != nil {
			return updated, err
		}
		if wasRunning {
			if err := c.StartContainer(ctx, user.Name); err != nil {
				return updated, err
			}
		}
		log.Info("recreated container", "user", user.Name, "restarted", wasRunning)
		updated = append(updated, user.Name)
	}
	return updated, nil
}
