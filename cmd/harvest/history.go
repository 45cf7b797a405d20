package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"harvest-hq/gateway/pkg/cli"
	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/history"
	"harvest-hq/gateway/pkg/history/retention"
)

var historyFlags struct {
	limit      int
	format     string
	maxAgeDays int
	maxRecords int64
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain stored chat history",
	Args:  cobra.NoArgs,
	RunE:  listHistory,
	Long: `Read or prune the history store named in the configuration.

The commands open the store directly, so run them against a jsonl file or
sqlite database that is not being rewritten by a running gateway.

Examples:
  # Show the 20 newest turns
  harvest history --limit 20

  # Export the configured maximum as CSV
  harvest history list --limit 1000 --format csv > history.csv

  # Delete turns older than 30 days
  harvest history prune --max-age-days 30`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest stored turns (same as bare history)",
	Args:  cobra.NoArgs,
	RunE:  listHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply retention limits once",
	Long: `Delete turns older than --max-age-days and trim the store to the
--max-records newest turns. Flags default to the retention section of the
configuration.`,
	RunE: pruneHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyPruneCmd)

	historyCmd.PersistentFlags().IntVarP(&historyFlags.limit, "limit", "n", 0, "maximum turns to show (0 uses the configured default limit)")
	historyCmd.PersistentFlags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json, jsonl, csv")

	historyPruneCmd.Flags().IntVar(&historyFlags.maxAgeDays, "max-age-days", -1, "delete turns older than this many days")
	historyPruneCmd.Flags().Int64Var(&historyFlags.maxRecords, "max-records", -1, "keep at most this many turns")
}

func listHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	defer store.Close()

	reader, ok := store.(history.Reader)
	if !ok {
		return cli.NewCommandError("history list",
			fmt.Errorf("history backend %q cannot be read", cfg.History.Backend))
	}

	limit := historyFlags.limit
	if limit <= 0 {
		limit = cfg.History.Query.DefaultLimit
	}

	records, err := reader.Recent(cmd.Context(), limit)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	return cli.WriteRecords(cmd.OutOrStdout(), format, records)
}

func pruneHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	policy := retentionOverrides(cfg.History.Retention)
	if policy.MaxAgeDays <= 0 && policy.MaxRecords <= 0 {
		return cli.NewConfigError("retention", "no limit set: pass --max-age-days or --max-records")
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	defer store.Close()

	target, ok := store.(history.Pruner)
	if !ok {
		return cli.NewCommandError("history prune",
			fmt.Errorf("history backend %q does not support pruning", cfg.History.Backend))
	}

	deleted, err := retention.NewPruner(target, policy).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d turns\n", deleted)
	return nil
}

// retentionOverrides applies the prune flags on top of the configured policy.
func retentionOverrides(base config.RetentionConfig) config.RetentionConfig {
	if historyFlags.maxAgeDays >= 0 {
		base.MaxAgeDays = historyFlags.maxAgeDays
	}
	if historyFlags.maxRecords >= 0 {
		base.MaxRecords = historyFlags.maxRecords
	}
	return base
}
