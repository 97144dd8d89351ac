package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/config"
)

const starterConfig = `# clawctl configuration
clawctl:
  data_root: data
  openclaw_version: latest
  image_name: openclaw-instance
  log_level: info

  backup:
    enabled: true
    interval_minutes: 15

  defaults:
    model: openrouter/z-ai/glm-4.5-air:free

users: []
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration and the base directory tree",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.FindPath(configFlag)

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
	} else {
		if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("writing starter config: %w", err)
		}
		fmt.Printf("Wrote starter config: %s\n", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Paths().EnsureBaseDirs(); err != nil {
		return err
	}
	fmt.Printf("Data root ready: %s\n", cfg.Paths().DataRoot())
	return nil
}
