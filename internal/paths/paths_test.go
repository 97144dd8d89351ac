package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildRootDefaultsToDataRoot(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "")
	if r.BuildRoot() != r.DataRoot() {
		t.Errorf("expected build root %q to equal data root %q", r.BuildRoot(), r.DataRoot())
	}
}

func TestUserPaths(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "")

	if got, want := r.UserOpenclawDir("alice"), filepath.Join(dir, "users", "alice", "openclaw"); got != want {
		t.Errorf("UserOpenclawDir: got %q, want %q", got, want)
	}
	if got, want := r.UserOpenclawConfig("alice"), filepath.Join(dir, "users", "alice", "openclaw", "openclaw.json"); got != want {
		t.Errorf("UserOpenclawConfig: got %q, want %q", got, want)
	}
	if got, want := r.UserWorkspaceDir("alice"), filepath.Join(dir, "users", "alice", "openclaw", "workspace"); got != want {
		t.Errorf("UserWorkspaceDir: got %q, want %q", got, want)
	}
	if got, want := r.UserSecretsDir("alice"), filepath.Join(dir, "secrets", "alice"); got != want {
		t.Errorf("UserSecretsDir: got %q, want %q", got, want)
	}
}

func TestPIDFilesLiveUnderBuildRoot(t *testing.T) {
	data := t.TempDir()
	build := t.TempDir()
	r := New(data, build)

	if got, want := r.BackupPIDFile(), filepath.Join(build, ".backup.pid"); got != want {
		t.Errorf("BackupPIDFile: got %q, want %q", got, want)
	}
	if got, want := r.SyncPIDFile(), filepath.Join(build, ".collections-sync.pid"); got != want {
		t.Errorf("SyncPIDFile: got %q, want %q", got, want)
	}
}

func TestEnsureDirsIdempotent(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "")

	for i := 0; i < 2; i++ {
		if err := r.EnsureBaseDirs(); err != nil {
			t.Fatalf("EnsureBaseDirs (pass %d): %v", i+1, err)
		}
		if err := r.EnsureUserDirs("alice"); err != nil {
			t.Fatalf("EnsureUserDirs (pass %d): %v", i+1, err)
		}
	}

	for _, p := range []string{
		r.LogsDir(),
		r.SecretsRoot(),
		r.SharedRoot(),
		r.UserWorkspaceDir("alice"),
		r.UserConfigDir("alice"),
		r.UserBackupDir("alice"),
		r.UserSecretsDir("alice"),
	} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", p)
		}
	}
}

func TestSharedCollectionDir(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "")

	got, err := r.SharedCollectionDir("newsletters/2024/january")
	if err != nil {
		t.Fatalf("SharedCollectionDir: %v", err)
	}
	want := filepath.Join(dir, "shared", "newsletters", "2024", "january")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidateCollectionName(t *testing.T) {
	valid := []string{"docs", "newsletters/2024", "a/b/c"}
	for _, name := range valid {
		if err := ValidateCollectionName(name); err != nil {
			t.Errorf("ValidateCollectionName(%q): unexpected error %v", name, err)
		}
	}

	invalid := []string{"", "../escape", "a/../b", "a//b", "/abs", "a/./b", ".."}
	for _, name := range invalid {
		if err := ValidateCollectionName(name); err == nil {
			t.Errorf("ValidateCollectionName(%q): expected error", name)
		}
	}
}
