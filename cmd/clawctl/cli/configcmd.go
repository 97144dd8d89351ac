package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage generated and declared configuration",
}

var configRegenCmd = &cobra.Command{
	Use:   "regen [username]",
	Short: "Regenerate openclaw.json for one or all users",
	Long: `Rewrite openclaw.json from the current clawctl.yaml. Run this after
editing a user's channels, skills, or model. Containers pick up the
new file on restart.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigRegen,
}

var configSetModelCmd = &cobra.Command{
	Use:   "set-model <username> <model>",
	Short: "Change a user's agent model in clawctl.yaml and regenerate",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetModel,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configRegenCmd)
	configCmd.AddCommand(configSetModelCmd)
}

func runConfigRegen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch := newOrchestrator(cfg, nil)
	usernames := cfg.Usernames()
	if len(args) == 1 {
		usernames = args
	}

	for _, username := range usernames {
		if err := orch.RegenerateConfig(username); err != nil {
			return err
		}
		fmt.Printf("Regenerated %s\n", cfg.Paths().UserOpenclawConfig(username))
	}
	if len(usernames) > 0 {
		fmt.Println("Run 'clawctl restart' for containers to pick up the change.")
	}
	return nil
}

func runConfigSetModel(cmd *cobra.Command, args []string) error {
	username, model := args[0], args[1]

	path := config.FindPath(configFlag)
	if err := config.SetUserModel(path, username, model); err != nil {
		return err
	}

	// Reload so the regenerated openclaw.json sees the new model.
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := newOrchestrator(cfg, nil).RegenerateConfig(username); err != nil {
		return err
	}

	fmt.Printf("Set model for %s to %s\n", username, model)
	fmt.Printf("Run 'clawctl restart %s' to apply.\n", username)
	return nil
}
