package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"

	"github.com/clawops/clawctl/internal/cache"
	"github.com/clawops/clawctl/internal/clawerr"
)

// Stats takes a one-shot resource usage sample for the user's
// container.
func (c *Client) Stats(ctx context.Context, username string) (*Stats, error) {
	resp, err := c.cli.ContainerStats(ctx, ContainerName(username), false)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, clawerr.NotFound("no container for user %s", username)
		}
		return nil, fmt.Errorf("sampling stats for %s: %w", username, err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding stats for %s: %w", username, err)
	}
	return summarize(&raw), nil
}

// summarize reduces Docker's raw sample to the dashboard numbers.
func summarize(raw *container.StatsResponse) *Stats {
	s := &Stats{
		MemoryUsage: raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
	}

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	if systemDelta > 0 && cpuDelta >= 0 {
		cpus := float64(raw.CPUStats.OnlineCPUs)
		if cpus == 0 {
			cpus = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
		}
		if cpus == 0 {
			cpus = 1
		}
		s.CPUPercent = cpuDelta / systemDelta * cpus * 100.0
	}

	if s.MemoryLimit > 0 {
		s.MemoryPercent = float64(s.MemoryUsage) / float64(s.MemoryLimit) * 100.0
	}

	for _, net := range raw.Networks {
		s.NetworkRx += net.RxBytes
		s.NetworkTx += net.TxBytes
	}
	return s
}

// StatsCollector fronts Runtime.Stats with a TTL cache so dashboards
// polling many users don't hammer the stats endpoint. The cache is
// injected so tests control time.
type StatsCollector struct {
	runtime Runtime
	cache   *cache.Cache[*Stats]
	ttl     time.Duration
}

// NewStatsCollector creates a collector caching samples for ttl.
func NewStatsCollector(runtime Runtime, c *cache.Cache[*Stats], ttl time.Duration) *StatsCollector {
	return &StatsCollector{runtime: runtime, cache: c, ttl: ttl}
}

// Get returns a cached sample when fresh, otherwise takes a new one.
func (sc *StatsCollector) Get(ctx context.Context, username string) (*Stats, error) {
	if s, ok := sc.cache.Get(username); ok {
		return s, nil
	}
	s, err := sc.runtime.Stats(ctx, username)
	if err != nil {
		return nil, err
	}
	sc.cache.Set(username, s, sc.ttl)
	return s, nil
}
