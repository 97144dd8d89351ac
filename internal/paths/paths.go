// Package paths resolves every host-side location in a clawctl deployment.
//
// Layout:
//
//	<data_root>/
//	├── audit.db
//	├── logs/
//	├── secrets/<username>/
//	├── shared/<collection>/
//	└── users/<username>/
//	    ├── openclaw/       # bind-mounted into the container
//	    │   ├── openclaw.json
//	    │   └── workspace/
//	    ├── config/         # bind-mounted as the container's ~/.config
//	    └── backup/         # git backup repo
//	<build_root>/
//	├── .backup.pid
//	└── .collections-sync.pid
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver computes canonical on-disk locations from the two configured
// roots. Build-time and ephemeral state (PID files) lives under the build
// root, which defaults to the data root when unset.
type Resolver struct {
	dataRoot  string
	buildRoot string
}

// New creates a Resolver. buildRoot may be empty, in which case it
// defaults to dataRoot.
func New(dataRoot, buildRoot string) *Resolver {
	if buildRoot == "" {
		buildRoot = dataRoot
	}
	abs := func(p string) string {
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}
	return &Resolver{dataRoot: abs(dataRoot), buildRoot: abs(buildRoot)}
}

// DataRoot returns the absolute data root.
func (r *Resolver) DataRoot() string { return r.dataRoot }

// BuildRoot returns the absolute build root.
func (r *Resolver) BuildRoot() string { return r.buildRoot }

// LogsDir returns the directory for clawctl and daemon log files.
func (r *Resolver) LogsDir() string { return filepath.Join(r.dataRoot, "logs") }

// SecretsRoot returns the root of all per-user secret directories.
func (r *Resolver) SecretsRoot() string { return filepath.Join(r.dataRoot, "secrets") }

// UsersRoot returns the root of all per-user data directories.
func (r *Resolver) UsersRoot() string { return filepath.Join(r.dataRoot, "users") }

// SharedRoot returns the root of the shared-collection tree.
func (r *Resolver) SharedRoot() string { return filepath.Join(r.dataRoot, "shared") }

// AuditDB returns the path of the sqlite audit log.
func (r *Resolver) AuditDB() string { return filepath.Join(r.dataRoot, "audit.db") }

// DockerBuildDir returns the image build context directory.
func (r *Resolver) DockerBuildDir() string { return filepath.Join(r.buildRoot, "docker") }

// BackupPIDFile returns the backup daemon's PID file path.
func (r *Resolver) BackupPIDFile() string { return filepath.Join(r.buildRoot, ".backup.pid") }

// SyncPIDFile returns the collections sync daemon's PID file path.
func (r *Resolver) SyncPIDFile() string {
	return filepath.Join(r.buildRoot, ".collections-sync.pid")
}

// UserDir returns a user's top-level directory.
func (r *Resolver) UserDir(username string) string {
	return filepath.Join(r.UsersRoot(), username)
}

// UserOpenclawDir returns the directory bind-mounted as the container's
// ~/.openclaw.
func (r *Resolver) UserOpenclawDir(username string) string {
	return filepath.Join(r.UserDir(username), "openclaw")
}

// UserOpenclawConfig returns the generated openclaw.json path.
func (r *Resolver) UserOpenclawConfig(username string) string {
	return filepath.Join(r.UserOpenclawDir(username), "openclaw.json")
}

// UserWorkspaceDir returns the user's persistent workspace.
func (r *Resolver) UserWorkspaceDir(username string) string {
	return filepath.Join(r.UserOpenclawDir(username), "workspace")
}

// UserConfigDir returns the directory bind-mounted as the container's
// ~/.config, so tools keep credentials across restarts.
func (r *Resolver) UserConfigDir(username string) string {
	return filepath.Join(r.UserDir(username), "config")
}

// UserBackupDir returns the user's git backup repository.
func (r *Resolver) UserBackupDir(username string) string {
	return filepath.Join(r.UserDir(username), "backup")
}

// UserSecretsDir returns the user's secret file directory.
func (r *Resolver) UserSecretsDir(username string) string {
	return filepath.Join(r.SecretsRoot(), username)
}

// SharedCollectionDir resolves a collection name, which may contain
// nested segments ("newsletters/2024/january"), to its destination
// directory. The name is validated so it cannot escape the shared root.
func (r *Resolver) SharedCollectionDir(name string) (string, error) {
	if err := ValidateCollectionName(name); err != nil {
		return "", err
	}
	return filepath.Join(r.SharedRoot(), filepath.FromSlash(name)), nil
}

// ValidateCollectionName rejects collection names with empty, dot, or
// parent-directory segments, double slashes, or absolute paths.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is empty")
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("collection name %q is absolute", name)
	}
	if strings.Contains(name, "//") {
		return fmt.Errorf("collection name %q contains an empty segment", name)
	}
	for _, seg := range strings.Split(name, "/") {
		switch seg {
		case "", ".", "..":
			return fmt.Errorf("collection name %q contains invalid segment %q", name, seg)
		}
	}
	return nil
}

// EnsureBaseDirs creates the base directory structure. Creating an
// already-existing directory is a no-op.
func (r *Resolver) EnsureBaseDirs() error {
	for _, dir := range []string{
		r.dataRoot,
		r.buildRoot,
		r.LogsDir(),
		r.SecretsRoot(),
		r.UsersRoot(),
		r.SharedRoot(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureUserDirs creates the full directory tree for a user.
func (r *Resolver) EnsureUserDirs(username string) error {
	for _, dir := range []string{
		r.UserOpenclawDir(username),
		r.UserWorkspaceDir(username),
		r.UserConfigDir(username),
		r.UserBackupDir(username),
		r.UserSecretsDir(username),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
