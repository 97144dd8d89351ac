// Package cli implements the clawctl command-line interface using
// Cobra. It provides commands for provisioning per-user OpenClaw
// container instances and managing their secrets, backups, and shared
// collections.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/log"
)

var (
	configFlag string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "clawctl",
	Short: "Manage per-user OpenClaw container instances",
	Long: `clawctl provisions and operates containerized OpenClaw instances,
one per user: isolated networks, secret files, generated runtime
configuration, git-backed workspace backups, and shared knowledge
collections.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := log.Init(log.Options{Verbose: verbose}); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "path to clawctl.yaml (env: CLAWCTL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
