// Package backup keeps a per-user git repository of workspace
// snapshots. Each pass mirrors the files matching the configured
// include patterns from the user's openclaw directory into the backup
// repo and commits only when something actually changed, so the commit
// history is the audit trail of workspace edits.
package backup

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/sync/errgroup"

	"github.com/clawops/clawctl/internal/config"
	"github.com/clawops/clawctl/internal/log"
	"github.com/clawops/clawctl/internal/paths"
)

// commitAuthor signs backup commits. Backups are machine-made; there
// is no human author to attribute.
var commitAuthor = object.Signature{Name: "clawctl", Email: "clawctl@localhost"}

// Manager runs backups for configured users.
type Manager struct {
	cfg   *config.Config
	paths *paths.Resolver
}

// NewManager creates a Manager over the configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg, paths: cfg.Paths()}
}

// Result is one user's backup outcome.
type Result struct {
	Changed bool
	Err     error
}

// Init creates the user's backup repository if it does not exist:
// an empty repo with a .gitignore and an initial commit. Initializing
// an existing repository is a no-op.
func (m *Manager) Init(username string) error {
	_, err := m.openOrInit(username)
	return err
}

func (m *Manager) openOrInit(username string) (*git.Repository, error) {
	dir := m.paths.UserBackupDir(username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if err != git.ErrRepositoryNotExists {
		return nil, fmt.Errorf("opening backup repo for %s: %w", username, err)
	}

	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("initializing backup repo for %s: %w", username, err)
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("*.tmp\n*.log\n"), 0o644); err != nil {
		return nil, fmt.Errorf("writing backup .gitignore: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening backup worktree: %w", err)
	}
	if _, err := wt.Add(".gitignore"); err != nil {
		return nil, fmt.Errorf("staging backup .gitignore: %w", err)
	}
	if _, err := wt.Commit("Initialize backup repository", &git.CommitOptions{Author: m.signature()}); err != nil {
		return nil, fmt.Errorf("creating initial backup commit: %w", err)
	}

	log.Info("initialized backup repository", "user", username)
	return repo, nil
}

// BackupUser mirrors the user's matching workspace files into the
// backup repo and commits. Returns true when a new snapshot was
// created, false when nothing changed.
func (m *Manager) BackupUser(username string) (bool, error) {
	repo, err := m.openOrInit(username)
	if err != nil {
		return false, err
	}

	if err := m.mirror(username); err != nil {
		return false, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("opening backup worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("checking backup status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("staging backup files: %w", err)
	}
	msg := fmt.Sprintf("Backup %s", time.Now().UTC().Format("2006-01-02 15:04:05"))
	if _, err := wt.Commit(msg, &git.CommitOptions{Author: m.signature()}); err != nil {
		return false, fmt.Errorf("committing backup: %w", err)
	}

	log.Info("backup committed", "user", username)
	return true, nil
}

// BackupAll backs up every configured user, isolating failures: one
// user's error never aborts the others. Returns a per-user result map.
func (m *Manager) BackupAll() map[string]Result {
	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(m.cfg.Users))
	)

	var g errgroup.Group
	g.SetLimit(4)
	for _, name := range m.cfg.Usernames() {
		g.Go(func() error {
			changed, err := m.BackupUser(name)
			if err != nil {
				log.Error("backup failed", "user", name, "error", err)
			}
			mu.Lock()
			results[name] = Result{Changed: changed, Err: err}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// mirror replaces the backup repo's content (everything but .git) with
// the workspace files matching the include patterns.
func (m *Manager) mirror(username string) error {
	repoDir := m.paths.UserBackupDir(username)
	srcDir := m.paths.UserOpenclawDir(username)

	entries, err := os.ReadDir(repoDir)
	if err != nil {
		return fmt.Errorf("reading backup dir: %w", err)
	}
	for _, e := range entries {
		if e.Name() == ".git" || e.Name() == ".gitignore" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(repoDir, e.Name())); err != nil {
			return fmt.Errorf("clearing backup dir: %w", err)
		}
	}

	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		return nil // nothing to back up yet
	}

	matcher := includeMatcher(m.cfg.Clawctl.Backup.IncludePatterns)
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if !matcher.Match(strings.Split(rel, string(filepath.Separator)), false) {
			return nil
		}

		dst := filepath.Join(repoDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return copyFile(path, dst)
	})
}

// includeMatcher reuses gitignore pattern syntax (including **) as an
// include filter over workspace-relative paths.
func includeMatcher(patterns []string) gitignore.Matcher {
	parsed := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		parsed = append(parsed, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(parsed)
}

func (m *Manager) signature() *object.Signature {
	sig := commitAuthor
	sig.When = time.Now()
	return &sig
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
