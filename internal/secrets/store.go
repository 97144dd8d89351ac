// Package secrets manages per-user secret files on the host.
//
// Secrets are stored as individual files at <data_root>/secrets/<username>/<name>
// and bind-mounted read-only into containers at /run/secrets, where the
// entrypoint converts them to environment variables. Files are written
// 0640 with a best-effort ownership handoff to the container user, so
// the value is readable inside the container but not world-readable on
// the host.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clawops/clawctl/internal/log"
	"github.com/clawops/clawctl/internal/paths"
)

// GatewayTokenSecretName is the reserved secret holding the per-user
// gateway bearer token.
const GatewayTokenSecretName = "openclaw_gateway_token"

// containerOwner is the uid:gid the container process runs as. Ownership
// handoff to it is best effort; when chown is unavailable the deployment
// script is expected to fix permissions.
const containerOwner = "1000:1000"

// Store reads and writes per-user secret files.
type Store struct {
	paths *paths.Resolver
}

// NewStore creates a Store over the given path resolver.
func NewStore(p *paths.Resolver) *Store {
	return &Store{paths: p}
}

// Write persists a secret value and returns the file path. If the target
// file exists but is not writable (for example pre-owned by the container
// user), it is removed and rewritten.
func (s *Store) Write(username, name, value string) (string, error) {
	dir := s.paths.UserSecretsDir(username)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating secrets dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), 0o640); err != nil {
		if !os.IsPermission(err) {
			return "", fmt.Errorf("writing secret %s: %w", name, err)
		}
		// The file may be owned by a different writer. Remove and retry
		// once before giving up.
		if rmErr := os.Remove(path); rmErr != nil {
			return "", fmt.Errorf("writing secret %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(value), 0o640); err != nil {
			return "", fmt.Errorf("rewriting secret %s: %w", name, err)
		}
	}
	_ = os.Chmod(path, 0o640)

	// Hand ownership to the container user so the read-only mount is
	// readable inside the container. Failure is not fatal.
	if out, err := exec.Command("chown", containerOwner, path).CombinedOutput(); err != nil {
		log.Debug("chown of secret file failed", "path", path, "output", strings.TrimSpace(string(out)))
	}

	return path, nil
}

// Read returns the trimmed secret value, or ok=false when the secret
// does not exist. Absence is a valid state, never an error.
func (s *Store) Read(username, name string) (value string, ok bool, err error) {
	path := filepath.Join(s.paths.UserSecretsDir(username), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading secret %s: %w", name, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", true, nil
	}
	return trimmed, true, nil
}

// Exists reports whether a secret file exists.
func (s *Store) Exists(username, name string) bool {
	info, err := os.Stat(filepath.Join(s.paths.UserSecretsDir(username), name))
	return err == nil && info.Mode().IsRegular()
}

// List returns the user's secret filenames in lexicographic order. A
// user with no secrets directory yet has no secrets.
func (s *Store) List(username string) ([]string, error) {
	entries, err := os.ReadDir(s.paths.UserSecretsDir(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing secrets for %s: %w", username, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAll deletes the user's entire secret directory. Removing an
// already-absent directory is a no-op.
func (s *Store) RemoveAll(username string) error {
	if err := os.RemoveAll(s.paths.UserSecretsDir(username)); err != nil {
		return fmt.Errorf("removing secrets for %s: %w", username, err)
	}
	return nil
}

// EnsureGatewayToken returns the user's gateway token, generating and
// persisting a fresh one only when absent. An existing token is never
// regenerated.
func (s *Store) EnsureGatewayToken(username string) (string, error) {
	if token, ok, err := s.Read(username, GatewayTokenSecretName); err != nil {
		return "", err
	} else if ok && token != "" {
		return token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if _, err := s.Write(username, GatewayTokenSecretName, token); err != nil {
		return "", err
	}
	return token, nil
}

// generateToken produces a URL-safe token with 32 bytes of entropy.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating gateway token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
