package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/docker"
)

var (
	logsFollow bool
	logsTail   int
)

var logsCmd = &cobra.Command{
	Use:   "logs <username>",
	Short: "Show a user container's logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "stream new output")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 200, "number of trailing lines to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runtime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()

	stream, err := runtime.Logs(cmd.Context(), args[0], docker.LogOptions{
		Follow: logsFollow,
		Tail:   logsTail,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	_, err = io.Copy(os.Stdout, stream)
	return err
}
