package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resort-billing/config"
	"resort-billing/logger"
)

var version = "1.0.0"

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "resort-billing",
	Short: "Resort billing backend - reminder scheduler and admin API",
	Long: `resort-billing sends payment reminders for resort invoices, marks overdue
invoices and expires stale quotations on a daily schedule.

Configuration is read from the environment (optionally seeded from .env).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
