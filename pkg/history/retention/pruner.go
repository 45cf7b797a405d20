package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/history"
)

// Pruner enforces retention limits on a history store.
type Pruner struct {
	target    history.Pruner
	config    config.RetentionConfig
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a Pruner for target.
func NewPruner(target history.Pruner, cfg config.RetentionConfig) *Pruner {
	p := &Pruner{
		target: target,
		config: cfg,
		logger: slog.Default().With("component", "history.retention"),
		now:    time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes records older than the age limit, then trims to the record
// limit. It returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.MaxAgeDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.MaxAgeDays)
		deleted, err := p.target.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned records by age",
			"deleted_count", deleted,
			"cutoff_time", cutoff,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.target.TrimTo(ctx, p.config.MaxRecords)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if total > 0 {
		p.logger.Info("history pruning completed",
			"total_deleted", total,
			"max_age_days", p.config.MaxAgeDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return total, nil
}

// Start begins scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning and waits for a running cycle.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil if not scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
