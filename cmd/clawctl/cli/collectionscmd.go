package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/audit"
	"github.com/clawops/clawctl/internal/collections"
	"github.com/clawops/clawctl/internal/daemon"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Sync shared knowledge collections",
}

var collectionsSyncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Sync one or all configured collections now",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCollectionsSync,
}

var collectionsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduled sync daemon",
	Args:  cobra.NoArgs,
	RunE:  runCollectionsStart,
}

var collectionsStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the sync daemon",
	Args:  cobra.NoArgs,
	RunE:  runCollectionsStop,
}

var collectionsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the sync daemon is running",
	Args:  cobra.NoArgs,
	RunE:  runCollectionsStatus,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(collectionsSyncCmd)
	collectionsCmd.AddCommand(collectionsStartCmd)
	collectionsCmd.AddCommand(collectionsStopCmd)
	collectionsCmd.AddCommand(collectionsStatusCmd)
}

func runCollectionsSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := collections.NewManager(cfg)
	if err != nil {
		return err
	}

	store, _ := audit.Open(cfg.Paths().AuditDB())
	if store != nil {
		defer store.Close()
	}

	if len(args) == 1 {
		name := args[0]
		if err := mgr.SyncCollection(cmd.Context(), name); err != nil {
			return err
		}
		if store != nil {
			_ = store.Record(audit.EventSync, "", map[string]any{"collection": name})
		}
		fmt.Printf("Synced %s\n", name)
		return nil
	}

	var failed int
	for name, ok := range mgr.SyncAll(cmd.Context()) {
		if ok {
			fmt.Printf("%-24s synced\n", name)
			if store != nil {
				_ = store.Record(audit.EventSync, "", map[string]any{"collection": name})
			}
		} else {
			failed++
			fmt.Printf("%-24s failed\n", name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d collection(s) failed to sync", failed)
	}
	return nil
}

func runCollectionsStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := collections.NewManager(cfg)
	if err != nil {
		return err
	}

	pid, err := daemon.Start(
		cfg.Paths().SyncPIDFile(),
		[]string{"_syncd", "--config", configPath()},
		filepath.Join(cfg.Paths().LogsDir(), "syncd.log"),
	)
	if err != nil {
		return err
	}
	fmt.Printf("Sync daemon started (pid %d, schedule %s)\n", pid, mgr.Schedule())
	return nil
}

func runCollectionsStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	wasRunning, err := daemon.Stop(cfg.Paths().SyncPIDFile())
	if err != nil {
		return err
	}
	if wasRunning {
		fmt.Println("Sync daemon stopped.")
	} else {
		fmt.Println("Sync daemon was not running.")
	}
	return nil
}

func runCollectionsStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printDaemonStatus("Sync daemon", cfg.Paths().SyncPIDFile())
	return nil
}
