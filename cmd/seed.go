package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"resort-billing/database"
)

var seedRulesCmd = &cobra.Command{
	Use:   "seed-rules",
	Short: "Load reminder rules from a YAML file into an empty rule table",
	Long: `Reads reminder rules from a YAML file and inserts them when no rule exists yet.
Rules get ids in file order, which is also their evaluation order.

File format:
  rules:
    - type: before
      days: 3
      frequency: once
      subject: "Invoice {{.InvoiceNumber}} is due soon"`,
	Example: `  resort-billing seed-rules --file config/reminder-rules.yaml`,
	RunE:    runSeedRules,
}

func init() {
	rootCmd.AddCommand(seedRulesCmd)

	seedRulesCmd.Flags().String("file", "", "Path to the YAML rule file (default: REMINDER_RULES_FILE)")
}

func runSeedRules(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = cfg.ReminderRulesFilePath
	}
	if path == "" {
		return fmt.Errorf("--file or REMINDER_RULES_FILE is required")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	n, err := database.SeedReminderRules(cmd.Context(), db, path)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "rule table not empty or file has no rules; nothing seeded")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d reminder rules\n", n)
	return nil
}
