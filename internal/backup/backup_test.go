package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawops/clawctl/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Clawctl: config.Settings{
			DataRoot: t.TempDir(),
			Backup: config.Backup{
				IntervalMinutes: 15,
				IncludePatterns: []string{
					"workspace/**/*.md",
					"workspace/**/*.json",
					"openclaw.json",
				},
			},
		},
		Users: []config.User{{Name: "alice"}, {Name: "bob"}},
	}
}

func writeWorkspaceFile(t *testing.T, cfg *config.Config, username, rel, content string) {
	t.Helper()
	path := filepath.Join(cfg.Paths().UserOpenclawDir(username), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func commitCount(t *testing.T, dir string) int {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	require.NoError(t, err)
	count := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error { count++; return nil }))
	return count
}

func TestInitIdempotent(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)

	require.NoError(t, m.Init("alice"))
	require.NoError(t, m.Init("alice"))

	dir := cfg.Paths().UserBackupDir("alice")
	assert.FileExists(t, filepath.Join(dir, ".gitignore"))
	assert.Equal(t, 1, commitCount(t, dir))
}

func TestBackupDetectsNoOpVsChange(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)
	require.NoError(t, m.Init("alice"))

	// Nothing in the workspace: no new snapshot.
	changed, err := m.BackupUser("alice")
	require.NoError(t, err)
	assert.False(t, changed)

	// A new matching file creates a snapshot.
	writeWorkspaceFile(t, cfg, "alice", "workspace/notes/todo.md", "first")
	changed, err = m.BackupUser("alice")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, commitCount(t, cfg.Paths().UserBackupDir("alice")))

	// No further edits: no new snapshot.
	changed, err = m.BackupUser("alice")
	require.NoError(t, err)
	assert.False(t, changed)

	// An edit to the same file is a change again.
	writeWorkspaceFile(t, cfg, "alice", "workspace/notes/todo.md", "second")
	changed, err = m.BackupUser("alice")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestBackupHonorsIncludePatterns(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)
	require.NoError(t, m.Init("alice"))

	// A file outside the include patterns never triggers a snapshot.
	writeWorkspaceFile(t, cfg, "alice", "workspace/cache.bin", "binary")
	changed, err := m.BackupUser("alice")
	require.NoError(t, err)
	assert.False(t, changed)

	// The top-level config file is included.
	writeWorkspaceFile(t, cfg, "alice", "openclaw.json", "{}")
	changed, err = m.BackupUser("alice")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.FileExists(t, filepath.Join(cfg.Paths().UserBackupDir("alice"), "openclaw.json"))
	assert.NoFileExists(t, filepath.Join(cfg.Paths().UserBackupDir("alice"), "workspace", "cache.bin"))
}

func TestBackupRemovesDeletedFiles(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)

	writeWorkspaceFile(t, cfg, "alice", "workspace/a.md", "x")
	changed, err := m.BackupUser("alice")
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, os.Remove(filepath.Join(cfg.Paths().UserOpenclawDir("alice"), "workspace", "a.md")))
	changed, err = m.BackupUser("alice")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoFileExists(t, filepath.Join(cfg.Paths().UserBackupDir("alice"), "workspace", "a.md"))
}

func TestBackupAllIsolatesUsers(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)

	writeWorkspaceFile(t, cfg, "alice", "workspace/a.md", "x")

	results := m.BackupAll()
	require.Len(t, results, 2)
	assert.NoError(t, results["alice"].Err)
	assert.True(t, results["alice"].Changed)
	assert.NoError(t, results["bob"].Err)
	assert.False(t, results["bob"].Changed)
}
