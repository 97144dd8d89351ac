package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/audit"
	"github.com/clawops/clawctl/internal/backup"
	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/collections"
	"github.com/clawops/clawctl/internal/config"
	"github.com/clawops/clawctl/internal/daemon"
	"github.com/clawops/clawctl/internal/log"
)

// The _backupd and _syncd commands are the detached daemon entry
// points. 'backup start' and 'collections start' re-exec the clawctl
// binary with one of these, so they are hidden from help output.

var backupdCmd = &cobra.Command{
	Use:    "_backupd",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runBackupd,
}

var syncdCmd = &cobra.Command{
	Use:    "_syncd",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runSyncd,
}

func init() {
	rootCmd.AddCommand(backupdCmd)
	rootCmd.AddCommand(syncdCmd)
}

// initDaemonLogging reconfigures the logger for a detached run: debug
// detail goes to rotated JSONL files under the logs directory.
func initDaemonLogging(cfg *config.Config, prefix string) error {
	return log.Init(log.Options{
		Verbose:       true,
		Dir:           cfg.Paths().LogsDir(),
		Prefix:        prefix,
		RetentionDays: 14,
	})
}

func runBackupd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Clawctl.Backup.IsEnabled() {
		return clawerr.Config("backups are disabled in the configuration")
	}
	if err := initDaemonLogging(cfg, "backupd"); err != nil {
		return err
	}
	defer log.Close()

	mgr := backup.NewManager(cfg)
	store, err := audit.Open(cfg.Paths().AuditDB())
	if err != nil {
		log.Warn("audit log unavailable", "error", err)
	} else {
		defer store.Close()
	}

	interval := time.Duration(cfg.Clawctl.Backup.IntervalMinutes) * time.Minute
	runner := daemon.NewRunner("backup", daemon.IntervalNext(interval), func() {
		for username, result := range mgr.BackupAll() {
			if result.Err != nil {
				log.Error("backup failed", "user", username, "error", result.Err)
				continue
			}
			if result.Changed && store != nil {
				_ = store.Record(audit.EventBackup, username, map[string]any{"changed": true})
			}
		}
	})

	log.Info("backup daemon starting", "interval", interval)
	runner.Run()
	return nil
}

func runSyncd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := collections.NewManager(cfg)
	if err != nil {
		return err
	}
	if err := initDaemonLogging(cfg, "syncd"); err != nil {
		return err
	}
	defer log.Close()

	store, err := audit.Open(cfg.Paths().AuditDB())
	if err != nil {
		log.Warn("audit log unavailable", "error", err)
	} else {
		defer store.Close()
	}

	runner := daemon.NewRunner("sync", daemon.ScheduleNext(mgr.Schedule()), func() {
		for name, ok := range mgr.SyncAll(context.Background()) {
			if ok && store != nil {
				_ = store.Record(audit.EventSync, "", map[string]any{"collection": name})
			}
		}
	})

	log.Info("sync daemon starting", "schedule", mgr.Schedule())
	runner.Run()
	return nil
}
