package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"resort-billing/logger"
	"resort-billing/scheduler"
)

var checkCmd = &cobra.Command{
	Use:   "check <" + strings.Join(scheduler.Checks, "|") + ">",
	Short: "Run one check immediately and print its result",
	Long: `Runs a single check once, outside the schedule, and prints the run summary
as JSON. Useful from an external cron or for backfilling after downtime.`,
	Example: `  resort-billing check overdue
  resort-billing check reminders`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: scheduler.Checks,
	RunE:      runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("check")
	name := strings.ToLower(strings.TrimSpace(args[0]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	res, err := rt.scheduler.Run(ctx, name)
	if err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}

	log.Info().
		Str("check", res.Check).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("check finished")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
