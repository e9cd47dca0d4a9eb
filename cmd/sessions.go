package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bridgelabs/wawoot/internal/config"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect registered WhatsApp sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sessions and their Chatwoot bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			stores, db, _, err := openStores(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx := context.Background()
			sessions, err := stores.Sessions.List(ctx)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			bound := make(map[string]bool)
			if tenants, err := stores.Tenants.List(ctx); err == nil {
				for _, t := range tenants {
					bound[t.SessionID] = true
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tPHONE\tNAME\tPAIRED\tCHATWOOT")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n",
					s.SessionID, s.PhoneNumber, s.DisplayName, s.DeviceJID != "", bound[s.SessionID])
			}
			return w.Flush()
		},
	}
}
