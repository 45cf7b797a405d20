// Package retention prunes stored history on a schedule.
//
// Pruning runs in two phases. Records older than MaxAgeDays are deleted
// first, then the store is trimmed to its MaxRecords newest entries. Either
// limit may be zero to disable it.
//
//	pruner := retention.NewPruner(store, cfg.History.Retention)
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
//
// Only stores implementing history.Pruner can be pruned. The schedule is a
// standard five-field cron expression.
package retention
