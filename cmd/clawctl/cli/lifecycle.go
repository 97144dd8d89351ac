package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/audit"
	"github.com/clawops/clawctl/internal/docker"
)

var startCmd = &cobra.Command{
	Use:   "start [username]",
	Short: "Start one or all user containers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop [username]",
	Short: "Stop one or all user containers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStop,
}

var restartCmd = &cobra.Command{
	Use:   "restart [username]",
	Short: "Restart one or all user containers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRestart,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the image and recreate every container against it",
	Args:  cobra.NoArgs,
	RunE:  runRebuild,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(rebuildCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	return lifecycleOp(cmd, args, audit.EventStart, "Started",
		func(ctx context.Context, r *docker.Client, username string) error {
			return r.StartContainer(ctx, username)
		},
		func(ctx context.Context, r *docker.Client) ([]string, error) {
			return r.StartAll(ctx)
		})
}

func runStop(cmd *cobra.Command, args []string) error {
	return lifecycleOp(cmd, args, audit.EventStop, "Stopped",
		func(ctx context.Context, r *docker.Client, username string) error {
			return r.StopContainer(ctx, username)
		},
		func(ctx context.Context, r *docker.Client) ([]string, error) {
			return r.StopAll(ctx)
		})
}

func runRestart(cmd *cobra.Command, args []string) error {
	return lifecycleOp(cmd, args, audit.EventRestart, "Restarted",
		func(ctx context.Context, r *docker.Client, username string) error {
			return r.RestartContainer(ctx, username)
		},
		func(ctx context.Context, r *docker.Client) ([]string, error) {
			restarted, err := r.StopAll(ctx)
			if err != nil {
				return restarted, err
			}
			return r.StartAll(ctx)
		})
}

// lifecycleOp runs a container lifecycle verb against one named user or,
// with no argument, the whole fleet.
func lifecycleOp(cmd *cobra.Command, args []string, event audit.EventType, verb string,
	one func(context.Context, *docker.Client, string) error,
	all func(context.Context, *docker.Client) ([]string, error)) error {

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runtime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()

	store, _ := audit.Open(cfg.Paths().AuditDB())
	if store != nil {
		defer store.Close()
	}

	if len(args) == 1 {
		username := args[0]
		if err := one(cmd.Context(), runtime, username); err != nil {
			return err
		}
		if store != nil {
			_ = store.Record(event, username, nil)
		}
		fmt.Printf("%s %s\n", verb, username)
		return nil
	}

	names, err := all(cmd.Context(), runtime)
	if err != nil {
		return err
	}
	for _, name := range names {
		if store != nil {
			_ = store.Record(event, name, nil)
		}
	}
	if len(names) == 0 {
		fmt.Println("No containers to act on.")
	} else {
		fmt.Printf("%s %s\n", verb, strings.Join(names, ", "))
	}
	return nil
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runtime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()

	updated, err := runtime.RebuildAll(cmd.Context())
	if err != nil {
		return err
	}

	if store, _ := audit.Open(cfg.Paths().AuditDB()); store != nil {
		for _, name := range updated {
			_ = store.Record(audit.EventRebuild, name, nil)
		}
		store.Close()
	}

	if len(updated) == 0 {
		fmt.Println("Image rebuilt; no containers to recreate.")
	} else {
		fmt.Printf("Rebuilt image and recreated: %s\n", strings.Join(updated, ", "))
	}
	return nil
}
