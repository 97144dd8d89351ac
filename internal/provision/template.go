package provision

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/clawops/clawctl/internal/clawerr"
)

// CopyTemplate copies seed files from templateDir into destDir,
// skipping any destination file that already exists so re-provisioning
// never clobbers a user's live edits. Returns the relative paths
// copied.
func CopyTemplate(templateDir, destDir string) ([]string, error) {
	info, err := os.Stat(templateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clawerr.NotFound("template directory not found: %s", templateDir)
		}
		return nil, fmt.Errorf("reading template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, clawerr.Config("template path is not a directory: %s", templateDir)
	}

	var copied []string
	err = filepath.WalkDir(templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(templateDir, path)
		if err != nil {
			return err
		}

		dst := filepath.Join(destDir, rel)
		if _, err := os.Stat(dst); err == nil {
			return nil // user already has this file
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := copyFile(path, dst); err != nil {
			return err
		}
		copied = append(copied, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copying template: %w", err)
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
