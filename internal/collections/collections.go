// Package collections syncs shared knowledge collections into
// <data_root>/shared/<name>. A sync is a full replace: the destination
// is swapped wholesale with the freshly fetched content, never merged,
// so containers mounting the shared tree always see a complete
// collection.
package collections

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/config"
	"github.com/clawops/clawctl/internal/log"
	"github.com/clawops/clawctl/internal/paths"
)

// ObjectSource lists and fetches objects from a remote store. The S3
// implementation is the production source; tests substitute a fake.
type ObjectSource interface {
	// List returns the keys under prefix.
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	// Fetch opens one object for reading.
	Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Manager syncs the configured shared collections.
type Manager struct {
	settings *config.SharedCollections
	paths    *paths.Resolver

	sourceOnce sync.Once
	source     ObjectSource
	sourceErr  error
}

// NewManager creates a Manager. Returns a config error when no
// shared_collections block is configured.
func NewManager(cfg *config.Config) (*Manager, error) {
	if cfg.Clawctl.Collections == nil {
		return nil, clawerr.Config("shared_collections is not configured")
	}
	return &Manager{settings: cfg.Clawctl.Collections, paths: cfg.Paths()}, nil
}

// WithSource overrides the object source (tests).
func (m *Manager) WithSource(src ObjectSource) *Manager {
	m.sourceOnce.Do(func() {})
	m.source = src
	return m
}

// Names returns the configured collection names.
func (m *Manager) Names() []string {
	return m.settings.Collections
}

// Schedule returns the configured sync schedule string.
func (m *Manager) Schedule() string {
	return m.settings.SyncSchedule
}

// SyncCollection syncs one collection by name. The name is validated
// against path traversal before any filesystem or network work.
func (m *Manager) SyncCollection(ctx context.Context, name string) error {
	dest, err := m.paths.SharedCollectionDir(name)
	if err != nil {
		return err
	}

	staging, err := os.MkdirTemp(m.paths.SharedRoot(), "."+filepath.Base(name)+"-sync-*")
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(m.paths.SharedRoot(), 0o755); mkErr != nil {
				return fmt.Errorf("creating shared root: %w", mkErr)
			}
			staging, err = os.MkdirTemp(m.paths.SharedRoot(), "."+filepath.Base(name)+"-sync-*")
		}
		if err != nil {
			return fmt.Errorf("creating staging dir: %w", err)
		}
	}
	defer os.RemoveAll(staging)

	switch m.settings.SourceType {
	case "s3":
		err = m.fetchS3(ctx, name, staging)
	case "local":
		err = m.fetchLocal(name, staging)
	default:
		err = clawerr.Config("unknown shared_collections source_type %q", m.settings.SourceType)
	}
	if err != nil {
		return err
	}

	if err := normalizePermissions(staging); err != nil {
		return err
	}

	// Full replace: drop the old tree, move the staged one in.
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clearing collection %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating shared root: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("installing collection %s: %w", name, err)
	}
	_ = os.Chmod(dest, 0o755)

	log.Info("synced collection", "collection", name, "source", m.settings.SourceType)
	return nil
}

// SyncAll syncs every configured collection, isolating failures: a
// failed collection is logged and reported false, and never aborts the
// rest.
func (m *Manager) SyncAll(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(m.settings.Collections))
	for _, name := range m.settings.Collections {
		if err := m.SyncCollection(ctx, name); err != nil {
			log.Error("collection sync failed", "collection", name, "error", err)
			results[name] = false
			continue
		}
		results[name] = true
	}
	return results
}

// fetchS3 mirrors the collection's objects from the bucket into dir.
func (m *Manager) fetchS3(ctx context.Context, name, dir string) error {
	src, err := m.objectSource(ctx)
	if err != nil {
		return err
	}

	prefix := strings.TrimSuffix(m.settings.S3Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	prefix += name + "/"

	keys, err := src.List(ctx, m.settings.S3Bucket, prefix)
	if err != nil {
		return fmt.Errorf("listing s3 collection %s: %w", name, err)
	}
	if len(keys) == 0 {
		return clawerr.NotFound("collection %s has no objects under s3://%s/%s", name, m.settings.S3Bucket, prefix)
	}

	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue // directory placeholder objects
		}
		// Bucket contents are not trusted: a key like "a/../../x" must
		// not write outside the staging tree.
		cleaned := path.Clean(rel)
		if cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
			return clawerr.Config("collection %s: object key escapes the collection: %s", name, key)
		}
		rel = cleaned

		body, err := src.Fetch(ctx, m.settings.S3Bucket, key)
		if err != nil {
			return fmt.Errorf("fetching s3://%s/%s: %w", m.settings.S3Bucket, key, err)
		}

		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			body.Close()
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			body.Close()
			return err
		}
		_, copyErr := io.Copy(out, body)
		body.Close()
		if closeErr := out.Close(); copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			return fmt.Errorf("writing %s: %w", dst, copyErr)
		}
	}
	return nil
}

// fetchLocal copies the collection from the local source base into dir.
func (m *Manager) fetchLocal(name, dir string) error {
	src := filepath.Join(m.settings.LocalSourceBase, name)
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return clawerr.NotFound("local collection source not found: %s", src)
		}
		return err
	}
	if !info.IsDir() {
		return clawerr.Config("local collection source is not a directory: %s", src)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			return os.MkdirAll(dst, 0o755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(dst)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

// objectSource lazily builds the S3 client from the ambient AWS
// configuration.
func (m *Manager) objectSource(ctx context.Context) (ObjectSource, error) {
	m.sourceOnce.Do(func() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			m.sourceErr = fmt.Errorf("loading aws config: %w", err)
			return
		}
		m.source = &s3Source{client: s3.NewFromConfig(awsCfg)}
	})
	return m.source, m.sourceErr
}

// normalizePermissions makes the synced tree world-readable: 0755
// directories, 0644 files. The shared tree is mounted read-only into
// containers running as a different UID.
func normalizePermissions(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.Chmod(path, 0o755)
		}
		return os.Chmod(path, 0o644)
	})
}
