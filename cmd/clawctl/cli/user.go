package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/secrets"
)

var (
	userRemoveDeleteData bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Provision and manage user instances",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Provision a user's instance",
	Long: `Provision a user declared in the configuration: directories,
secrets, gateway token, openclaw.json, network, and container.
Missing required secrets are prompted for interactively. Safe to
re-run after a partial failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

var userRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a user's container and network",
	Long: `Remove a user's container and network. Data and secrets are kept
unless --delete-data is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserRemove,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured users",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userRemoveCmd)
	userCmd.AddCommand(userListCmd)
	userRemoveCmd.Flags().BoolVar(&userRemoveDeleteData, "delete-data", false, "also delete the user's data and secrets")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	user := cfg.User(username)
	if user == nil {
		return clawerr.NotFound("user %s is not in the configuration (add a users entry first)", username)
	}

	// Collect any required secrets not yet on disk.
	store := secrets.NewStore(cfg.Paths())
	values := make(map[string]string)
	for _, req := range secrets.RequiredSecrets(cfg, user) {
		if store.Exists(username, req.Name) {
			continue
		}
		value, err := promptSecret(fmt.Sprintf("%s (%s)", req.Name, req.Description))
		if err != nil {
			return err
		}
		if value == "" {
			return clawerr.Config("secret %s is required for %s", req.Name, username)
		}
		values[req.Name] = value
	}

	runtime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()

	if err := newOrchestrator(cfg, runtime).Provision(cmd.Context(), username, values); err != nil {
		return err
	}

	port, err := runtime.HostPort(cmd.Context(), username)
	if err == nil && port != 0 {
		fmt.Printf("Provisioned %s (gateway on host port %d)\n", username, port)
	} else {
		fmt.Printf("Provisioned %s\n", username)
	}
	return nil
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	username := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if userRemoveDeleteData {
		if !confirm(fmt.Sprintf("Delete ALL data and secrets for %s?", username)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	runtime, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()

	if err := newOrchestrator(cfg, runtime).Remove(cmd.Context(), username, !userRemoveDeleteData); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", username)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	for _, u := range cfg.Users {
		model := cfg.EffectiveModel(&u)
		channels := ""
		if u.Channels.Slack.Enabled {
			channels += " slack"
		}
		if u.Channels.Discord.Enabled {
			channels += " discord"
		}
		fmt.Printf("%-20s %s%s\n", u.Name, model, channels)
	}
	return nil
}
