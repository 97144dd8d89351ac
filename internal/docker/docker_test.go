package docker

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/clawops/clawctl/internal/cache"
)

func TestNames(t *testing.T) {
	if got := ContainerName("alice"); got != "openclaw-alice" {
		t.Errorf("ContainerName: got %q", got)
	}
	if got := NetworkName("alice"); got != "openclaw-net-alice" {
		t.Errorf("NetworkName: got %q", got)
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"created":    StatusCreated,
		"running":    StatusRunning,
		"restarting": StatusRestarting,
		"paused":     StatusPaused,
		"exited":     StatusExited,
		"dead":       StatusExited,
		"weird":      StatusUnknown,
	}
	for state, want := range cases {
		if got := parseStatus(state); got != want {
			t.Errorf("parseStatus(%q) = %q, want %q", state, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	raw := &container.StatsResponse{}
	raw.PreCPUStats.CPUUsage.TotalUsage = 1000
	raw.PreCPUStats.SystemUsage = 10000
	raw.CPUStats.CPUUsage.TotalUsage = 2000
	raw.CPUStats.SystemUsage = 20000
	raw.CPUStats.OnlineCPUs = 2
	raw.MemoryStats.Usage = 256
	raw.MemoryStats.Limit = 1024
	raw.Networks = map[string]container.NetworkStats{
		"eth0": {RxBytes: 100, TxBytes: 50},
		"eth1": {RxBytes: 10, TxBytes: 5},
	}

	s := summarize(raw)
	if s.CPUPercent != 20.0 {
		t.Errorf("CPUPercent = %v, want 20", s.CPUPercent)
	}
	if s.MemoryPercent != 25.0 {
		t.Errorf("MemoryPercent = %v, want 25", s.MemoryPercent)
	}
	if s.NetworkRx != 110 || s.NetworkTx != 55 {
		t.Errorf("network totals = %d/%d, want 110/55", s.NetworkRx, s.NetworkTx)
	}
}

func TestSummarizeZeroSystemDelta(t *testing.T) {
	raw := &container.StatsResponse{}
	raw.MemoryStats.Limit = 0

	s := summarize(raw)
	if s.CPUPercent != 0 || s.MemoryPercent != 0 {
		t.Errorf("expected zero percentages, got %+v", s)
	}
}

type statsOnlyRuntime struct {
	Runtime
	calls int
}

func (r *statsOnlyRuntime) Stats(ctx context.Context, username string) (*Stats, error) {
	r.calls++
	return &Stats{CPUPercent: float64(r.calls)}, nil
}

func TestStatsCollectorCaches(t *testing.T) {
	rt := &statsOnlyRuntime{}
	sc := NewStatsCollector(rt, cache.New[*Stats](), time.Minute)

	first, err := sc.Get(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := sc.Get(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if rt.calls != 1 {
		t.Errorf("expected one sample, got %d", rt.calls)
	}
	if first.CPUPercent != second.CPUPercent {
		t.Error("expected cached sample")
	}

	// Another user is a separate cache entry.
	if _, err := sc.Get(context.Background(), "bob"); err != nil {
		t.Fatal(err)
	}
	if rt.calls != 2 {
		t.Errorf("expected a fresh sample per user, got %d calls", rt.calls)
	}
}
