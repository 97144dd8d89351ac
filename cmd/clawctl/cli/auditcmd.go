package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawops/clawctl/internal/audit"
)

var (
	auditLimit int
	auditUser  string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent lifecycle events",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "maximum number of events to show")
	auditCmd.Flags().StringVar(&auditUser, "user", "", "only show events for this user")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := audit.Open(cfg.Paths().AuditDB())
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.Recent(auditUser, auditLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tUSER\tDETAIL")
	for _, e := range events {
		user := e.Username
		if user == "" {
			user = "-"
		}
		detail := string(e.Detail)
		if detail == "{}" {
			detail = ""
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Type, user, detail)
	}
	return w.Flush()
}
