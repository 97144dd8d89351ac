package provision

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawops/clawctl/internal/config"
	"github.com/clawops/clawctl/internal/docker"
	"github.com/clawops/clawctl/internal/secrets"
)

// fakeRuntime records runtime calls without touching Docker.
type fakeRuntime struct {
	imageBuilt    bool
	buildCalls    int
	createCalls   int
	startCalls    int
	created       map[string]bool
	removed       []string
	networksGone  []string
	imagePrebuilt bool
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{created: map[string]bool{}}
}

func (f *fakeRuntime) ImageExists(ctx context.Context) (bool, error) {
	return f.imagePrebuilt || f.imageBuilt, nil
}

func (f *fakeRuntime) BuildImage(ctx context.Context) error {
	f.buildCalls++
	f.imageBuilt = true
	return nil
}

func (f *fakeRuntime) EnsureNetwork(ctx context.Context, username string) error { return nil }

func (f *fakeRuntime) RemoveNetwork(ctx context.Context, username string) error {
	f.networksGone = append(f.networksGone, username)
	return nil
}

func (f *fakeRuntime) CreateContainer(ctx context.Context, user *config.User) error {
	f.createCalls++
	f.created[user.Name] = true
	return nil
}

func (f *fakeRuntime) StartContainer(ctx context.Context, username string) error {
	f.startCalls++
	return nil
}

func (f *fakeRuntime) StopContainer(ctx context.Context, username string) error    { return nil }
func (f *fakeRuntime) RestartContainer(ctx context.Context, username string) error { return nil }

func (f *fakeRuntime) RemoveContainer(ctx context.Context, username string) error {
	delete(f.created, username)
	f.removed = append(f.removed, username)
	return nil
}

func (f *fakeRuntime) ContainerExists(ctx context.Context, username string) (bool, error) {
	return f.created[username], nil
}

func (f *fakeRuntime) Status(ctx context.Context, username string) (docker.Status, error) {
	if f.created[username] {
		return docker.StatusRunning, nil
	}
	return docker.StatusAbsent, nil
}

func (f *fakeRuntime) HostPort(ctx context.Context, username string) (int, error) { return 0, nil }

func (f *fakeRuntime) Logs(ctx context.Context, username string, opts docker.LogOptions) (io.ReadCloser, error) {
	return nil, nil
}

func (f *fakeRuntime) Exec(ctx context.Context, username string, cmd, env []string) (int, string, error) {
	return 0, "", nil
}

func (f *fakeRuntime) Stats(ctx context.Context, username string) (*docker.Stats, error) {
	return &docker.Stats{}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Clawctl: config.Settings{
			DataRoot:        t.TempDir(),
			OpenclawVersion: "latest",
			ImageName:       "openclaw-instance",
		},
		Users: []config.User{{
			Name: "alice",
			Channels: config.Channels{Slack: config.SlackChannel{
				Enabled:        true,
				BotTokenSecret: "slack_bot_token",
				AppTokenSecret: "slack_app_token",
			}},
		}},
	}
}

func TestProvisionEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	rt := newFakeRuntime()
	o := New(cfg, rt, nil)

	err := o.Provision(context.Background(), "alice", map[string]string{
		"slack_bot_token": "xoxb-1",
		"slack_app_token": "xapp-1",
	})
	require.NoError(t, err)

	// Exactly the two supplied secrets plus the generated gateway token.
	store := secrets.NewStore(cfg.Paths())
	names, err := store.List("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"openclaw_gateway_token", "slack_app_token", "slack_bot_token"}, names)

	// The runtime config enables slack.
	data, err := os.ReadFile(cfg.Paths().UserOpenclawConfig("alice"))
	require.NoError(t, err)
	var doc struct {
		Channels struct {
			Slack struct {
				Enabled bool `json:"enabled"`
			} `json:"slack"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.True(t, doc.Channels.Slack.Enabled)

	assert.True(t, rt.created["alice"])
	assert.Equal(t, 1, rt.buildCalls)
	assert.Equal(t, 1, rt.startCalls)
}

func TestProvisionIdempotent(t *testing.T) {
	cfg := testConfig(t)
	rt := newFakeRuntime()
	o := New(cfg, rt, nil)

	values := map[string]string{"slack_bot_token": "a", "slack_app_token": "b"}
	require.NoError(t, o.Provision(context.Background(), "alice", values))

	store := secrets.NewStore(cfg.Paths())
	token, ok, err := store.Read("alice", secrets.GatewayTokenSecretName)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, o.Provision(context.Background(), "alice", values))

	// Second run creates no second container and keeps the token.
	assert.Equal(t, 1, rt.createCalls)
	assert.Equal(t, 1, rt.buildCalls)
	after, _, err := store.Read("alice", secrets.GatewayTokenSecretName)
	require.NoError(t, err)
	assert.Equal(t, token, after)
}

func TestProvisionUnknownUser(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, newFakeRuntime(), nil)
	err := o.Provision(context.Background(), "mallory", nil)
	require.Error(t, err)
}

func TestProvisionCopiesTemplate(t *testing.T) {
	cfg := testConfig(t)
	tmpl := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpl, "workspace"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "workspace", "README.md"), []byte("template version"), 0o644))
	cfg.Clawctl.Defaults.WorkspaceTemplate = tmpl

	o := New(cfg, newFakeRuntime(), nil)
	require.NoError(t, o.Provision(context.Background(), "alice", nil))

	seeded := filepath.Join(cfg.Paths().UserOpenclawDir("alice"), "workspace", "README.md")
	data, err := os.ReadFile(seeded)
	require.NoError(t, err)
	assert.Equal(t, "template version", string(data))

	// A user edit survives re-provisioning.
	require.NoError(t, os.WriteFile(seeded, []byte("user version"), 0o644))
	require.NoError(t, o.Provision(context.Background(), "alice", nil))
	data, err = os.ReadFile(seeded)
	require.NoError(t, err)
	assert.Equal(t, "user version", string(data))
}

// blockingRuntime parks inside CreateContainer, which the orchestrator
// calls while holding the per-user lock, and records call ordering.
type blockingRuntime struct {
	*fakeRuntime
	mu      sync.Mutex
	events  []string
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRuntime) record(ev string) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *blockingRuntime) CreateContainer(ctx context.Context, user *config.User) error {
	b.record("create enter")
	close(b.entered)
	<-b.release
	b.record("create exit")
	return b.fakeRuntime.CreateContainer(ctx, user)
}

func (b *blockingRuntime) RemoveContainer(ctx context.Context, username string) error {
	b.record("remove")
	return b.fakeRuntime.RemoveContainer(ctx, username)
}

func TestSameUserOperationsSerialized(t *testing.T) {
	cfg := testConfig(t)
	rt := &blockingRuntime{
		fakeRuntime: newFakeRuntime(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	rt.imagePrebuilt = true
	o := New(cfg, rt, nil)

	done := make(chan error, 2)
	go func() { done <- o.Provision(context.Background(), "alice", nil) }()
	<-rt.entered // provision now holds alice's lock inside CreateContainer

	go func() { done <- o.Remove(context.Background(), "alice", true) }()

	// Remove must park on the lock, not interleave with the create.
	time.Sleep(50 * time.Millisecond)
	rt.mu.Lock()
	interleaved := len(rt.events) > 1
	rt.mu.Unlock()
	assert.False(t, interleaved, "remove ran while provision held the lock: %v", rt.events)

	close(rt.release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"create enter", "create exit", "remove"}, rt.events)
}

func TestRemoveKeepsDataByDefault(t *testing.T) {
	cfg := testConfig(t)
	rt := newFakeRuntime()
	o := New(cfg, rt, nil)
	require.NoError(t, o.Provision(context.Background(), "alice", nil))

	require.NoError(t, o.Remove(context.Background(), "alice", true))
	assert.Equal(t, []string{"alice"}, rt.removed)
	assert.Equal(t, []string{"alice"}, rt.networksGone)
	assert.DirExists(t, cfg.Paths().UserDir("alice"))
	assert.FileExists(t, filepath.Join(cfg.Paths().UserSecretsDir("alice"), secrets.GatewayTokenSecretName))
}

func TestRemoveDeletesData(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, newFakeRuntime(), nil)
	require.NoError(t, o.Provision(context.Background(), "alice", nil))

	require.NoError(t, o.Remove(context.Background(), "alice", false))
	assert.NoDirExists(t, cfg.Paths().UserDir("alice"))
	assert.NoDirExists(t, cfg.Paths().UserSecretsDir("alice"))
}

func TestRegenerateConfig(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, newFakeRuntime(), nil)
	require.NoError(t, o.Provision(context.Background(), "alice", nil))

	configPath := cfg.Paths().UserOpenclawConfig("alice")
	before, err := os.ReadFile(configPath)
	require.NoError(t, err)

	cfg.Users[0].Agent.Model = "openrouter/openai/gpt-5-nano"
	require.NoError(t, o.RegenerateConfig("alice"))

	after, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotEqual(t, string(before), string(after))
	assert.Contains(t, string(after), "openrouter/openai/gpt-5-nano")
}
