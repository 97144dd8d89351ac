package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/docker"
)

var statusShowStats bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every configured instance",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusShowStats, "stats", false, "include CPU and memory usage for running instances")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runtime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()

	statuses, err := runtime.InstanceStatuses(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if statusShowStats {
		fmt.Fprintln(w, "USER\tSTATUS\tPORT\tCPU\tMEM")
	} else {
		fmt.Fprintln(w, "USER\tSTATUS\tPORT")
	}

	for _, username := range cfg.Usernames() {
		st := statuses[username]
		port := "-"
		if st.Port != 0 {
			port = fmt.Sprintf("%d", st.Port)
		}
		if !statusShowStats {
			fmt.Fprintf(w, "%s\t%s\t%s\n", username, st.Status, port)
			continue
		}

		cpu, mem := "-", "-"
		if st.Status == docker.StatusRunning {
			if stats, err := runtime.Stats(cmd.Context(), username); err == nil {
				cpu = fmt.Sprintf("%.1f%%", stats.CPUPercent)
				mem = fmt.Sprintf("%s / %s", formatBytes(stats.MemoryUsage), formatBytes(stats.MemoryLimit))
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", username, st.Status, port, cpu, mem)
	}
	return w.Flush()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
