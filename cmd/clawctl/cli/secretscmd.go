package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/clawerr"
	"github.com/clawops/clawctl/internal/secrets"
)

var userSecretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage a user's secret files",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <username> <name> [value]",
	Short: "Set a secret value",
	Long: `Write one secret file for a user. The value is taken from the third
argument when given, otherwise prompted for without echo.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSecretsSet,
}

var secretsListCmd = &cobra.Command{
	Use:   "list <username>",
	Short: "List a user's secrets and whether required ones are present",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsList,
}

func init() {
	userCmd.AddCommand(userSecretsCmd)
	userSecretsCmd.AddCommand(secretsSetCmd)
	userSecretsCmd.AddCommand(secretsListCmd)
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	username, name := args[0], args[1]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.User(username) == nil {
		return clawerr.NotFound("user %s is not in the configuration", username)
	}

	var value string
	if len(args) == 3 {
		value = args[2]
	} else {
		value, err = promptSecret(name)
		if err != nil {
			return err
		}
	}
	if value == "" {
		return clawerr.Config("refusing to store an empty value for %s", name)
	}

	path, err := secrets.NewStore(cfg.Paths()).Write(username, name, value)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Run 'clawctl restart' for the container to pick up the change.")
	return nil
}

func runSecretsList(cmd *cobra.Command, args []string) error {
	username := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	user := cfg.User(username)
	if user == nil {
		return clawerr.NotFound("user %s is not in the configuration", username)
	}

	store := secrets.NewStore(cfg.Paths())
	required := secrets.RequiredSecrets(cfg, user)
	isRequired := make(map[string]bool, len(required))

	for _, req := range required {
		isRequired[req.Name] = true
		state := "missing"
		if store.Exists(username, req.Name) {
			state = "present"
		}
		fmt.Printf("%-28s %-8s %s\n", req.Name, state, req.Description)
	}

	// Secrets on disk beyond what the configuration calls for.
	names, err := store.List(username)
	if err != nil {
		return err
	}
	for _, name := range names {
		if isRequired[name] || name == secrets.GatewayTokenSecretName {
			continue
		}
		fmt.Printf("%-28s %-8s\n", name, "extra")
	}
	return nil
}
