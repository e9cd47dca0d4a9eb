package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bridgelabs/wawoot/internal/config"
)

// Version is set at build time via -ldflags "-X github.com/bridgelabs/wawoot/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "wawoot",
	Short: "wawoot — WhatsApp to Chatwoot bridge",
	Long:  "wawoot bridges WhatsApp sessions into Chatwoot inboxes: inbound messages become conversations, agent replies go back out, and delivery receipts flow both ways.",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $WAWOOT_CONFIG or ~/.wawoot/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wawoot %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("WAWOOT_CONFIG"); v != "" {
		return v
	}
	return config.DefaultPath()
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
