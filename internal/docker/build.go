package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types/build"

	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/log"
)

// BuildImage builds the configured image tag from the docker/ build
// context under the build root, streaming build output to stdout. The
// application version is passed as the OPENCLAW_VERSION build arg. A
// build error from the daemon fails the call.
func (c *Client) BuildImage(ctx context.Context) error {
	contextDir := c.paths.DockerBuildDir()
	if _, err := os.Stat(filepath.Join(contextDir, "Dockerfile")); err != nil {
		return clawerr.Config("no Dockerfile under %s", contextDir)
	}

	buildContext, err := tarDirectory(contextDir)
	if err != nil {
		return fmt.Errorf("packing build context: %w", err)
	}

	tag := c.cfg.Clawctl.ImageTag()
	version := c.cfg.Clawctl.OpenclawVersion
	log.Info("building image", "tag", tag)

	resp, err := c.cli.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
		BuildArgs:  map[string]*string{"OPENCLAW_VERSION": &version},
	})
	if err != nil {
		return fmt.Errorf("building image %s: %w", tag, err)
	}
	defer resp.Body.Close()

	// Stream build progress; the daemon reports failures inline.
	decoder := json.NewDecoder(resp.Body)
	for {
		var msg struct {
			Stream string `json:"stream"`
			Error  string `json:"error"`
		}
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("reading build output: %w", err)
		}
		if msg.Error != "" {
			return fmt.Errorf("build of %s failed: %s", tag, msg.Error)
		}
		if msg.Stream != "" {
			fmt.Fprint(c.buildOut, msg.Stream)
		}
	}
	return nil
}

// tarDirectory packs a directory into an in-memory tar archive with
// paths relative to the directory root.
func tarDirectory(dir string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
