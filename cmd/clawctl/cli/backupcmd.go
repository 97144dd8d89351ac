package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/audit"
	"github.com/clawops/clawctl/internal/backup"
	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/daemon"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up user data into per-user git repositories",
}

var backupRunCmd = &cobra.Command{
	Use:   "run [username]",
	Short: "Run one backup pass now",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupRun,
}

var backupStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the periodic backup daemon",
	Args:  cobra.NoArgs,
	RunE:  runBackupStart,
}

var backupStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the backup daemon",
	Args:  cobra.NoArgs,
	RunE:  runBackupStop,
}

var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the backup daemon is running",
	Args:  cobra.NoArgs,
	RunE:  runBackupStatus,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupRunCmd)
	backupCmd.AddCommand(backupStartCmd)
	backupCmd.AddCommand(backupStopCmd)
	backupCmd.AddCommand(backupStatusCmd)
}

func runBackupRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr := backup.NewManager(cfg)

	store, _ := audit.Open(cfg.Paths().AuditDB())
	if store != nil {
		defer store.Close()
	}

	if len(args) == 1 {
		username := args[0]
		if cfg.User(username) == nil {
			return clawerr.NotFound("user %s is not in the configuration", username)
		}
		changed, err := mgr.BackupUser(username)
		if err != nil {
			return err
		}
		if store != nil {
			_ = store.Record(audit.EventBackup, username, map[string]any{"changed": changed})
		}
		if changed {
			fmt.Printf("Backed up %s\n", username)
		} else {
			fmt.Printf("No changes for %s\n", username)
		}
		return nil
	}

	var failed int
	for username, result := range mgr.BackupAll() {
		switch {
		case result.Err != nil:
			failed++
			fmt.Printf("%-20s error: %v\n", username, result.Err)
		case result.Changed:
			fmt.Printf("%-20s backed up\n", username)
		default:
			fmt.Printf("%-20s no changes\n", username)
		}
		if store != nil && result.Err == nil {
			_ = store.Record(audit.EventBackup, username, map[string]any{"changed": result.Changed})
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d backup(s) failed", failed)
	}
	return nil
}

func runBackupStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Clawctl.Backup.IsEnabled() {
		return clawerr.Config("backups are disabled in the configuration")
	}

	pid, err := daemon.Start(
		cfg.Paths().BackupPIDFile(),
		[]string{"_backupd", "--config", configPath()},
		filepath.Join(cfg.Paths().LogsDir(), "backupd.log"),
	)
	if err != nil {
		return err
	}
	fmt.Printf("Backup daemon started (pid %d, every %d minutes)\n", pid, cfg.Clawctl.Backup.IntervalMinutes)
	return nil
}

func runBackupStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	wasRunning, err := daemon.Stop(cfg.Paths().BackupPIDFile())
	if err != nil {
		return err
	}
	if wasRunning {
		fmt.Println("Backup daemon stopped.")
	} else {
		fmt.Println("Backup daemon was not running.")
	}
	return nil
}

func runBackupStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printDaemonStatus("Backup daemon", cfg.Paths().BackupPIDFile())
	return nil
}
