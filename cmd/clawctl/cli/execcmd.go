package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var execEnv []string

var execCmd = &cobra.Command{
	Use:   "exec <username> -- <command> [args...]",
	Short: "Run a command inside a user's container",
	Long: `Run a command inside a user's running container and print its
output. Used for in-container auth flows (for example 'gog auth' or
re-authenticating a Slack channel). clawctl exits with the command's
exit code.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringArrayVarP(&execEnv, "env", "e", nil, "environment variable to set (NAME=value, repeatable)")
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runtime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()

	exitCode, output, err := runtime.Exec(cmd.Context(), args[0], args[1:], execEnv)
	if err != nil {
		return err
	}
	fmt.Print(output)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
