package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/history"
)

// Drop reasons reported to Metrics.
const (
	DropQueueFull = "queue_full"
	DropClosed    = "closed"
)

// Metrics receives recorder observations. A nil Metrics disables reporting.
type Metrics interface {
	RecordHistoryWrite(mode, result string, duration time.Duration)
	RecordHistoryDropped(reason string)
	SetHistoryQueueDepth(depth int)
}

// Stats is a snapshot of recorder counters.
type Stats struct {
	Submitted uint64
	Written   uint64
	Failed    uint64
	Dropped   uint64
}

// Recorder writes turns to a history store.
type Recorder struct {
	store   history.Store
	config  config.RecorderConfig
	metrics Metrics
	logger  *slog.Logger

	queue  chan history.Turn
	wg     sync.WaitGroup
	spills sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	once   sync.Once

	submitted atomic.Uint64
	written   atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a Recorder and starts its worker.
func New(store history.Store, cfg config.RecorderConfig, metrics Metrics) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultRecorderAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultRecorderWriteTimeout
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = config.DefaultRecorderEnqueueTimeout
	}

	r := &Recorder{
		store:   store,
		config:  cfg,
		metrics: metrics,
		logger:  slog.Default().With("component", "history.recorder"),
		queue:   make(chan history.Turn, cfg.AsyncBuffer),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("history recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
		"enqueue_timeout", cfg.EnqueueTimeout,
	)

	return r
}

// Submit queues a turn for asynchronous persistence. It returns immediately.
func (r *Recorder) Submit(turn history.Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(turn, DropClosed)
		return
	}
	r.submitted.Add(1)

	select {
	case r.queue <- turn:
		r.reportDepth()
		r.logger.Debug("turn enqueued", "request_id", turn.RequestID, "model", turn.Model)
	default:
		r.spills.Add(1)
		go r.spill(turn)
	}
}

// spill waits for queue space on behalf of a caller that found it full.
func (r *Recorder) spill(turn history.Turn) {
	defer r.spills.Done()

	timer := time.NewTimer(r.config.EnqueueTimeout)
	defer timer.Stop()

	select {
	case r.queue <- turn:
		r.reportDepth()
	case <-timer.C:
		r.drop(turn, DropQueueFull)
	}
}

func (r *Recorder) drop(turn history.Turn, reason string) {
	r.dropped.Add(1)
	if r.metrics != nil {
		r.metrics.RecordHistoryDropped(reason)
	}
	r.logger.Error("dropping turn",
		"reason", reason,
		"request_id", turn.RequestID,
		"model", turn.Model,
		"channel_capacity", r.config.AsyncBuffer,
	)
}

// Record writes a turn synchronously and returns the store's error.
func (r *Recorder) Record(ctx context.Context, turn history.Turn) error {
	return r.write(ctx, "sync", turn)
}

// Close stops accepting turns and drains everything already accepted.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		r.logger.Info("shutting down history recorder", "pending_count", len(r.queue))

		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		r.spills.Wait()
		close(r.queue)
		r.wg.Wait()

		r.logger.Info("history recorder shut down complete", "written", r.written.Load(), "dropped", r.dropped.Load())
	})
	return nil
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Submitted: r.submitted.Load(),
		Written:   r.written.Load(),
		Failed:    r.failed.Load(),
		Dropped:   r.dropped.Load(),
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for turn := range r.queue {
		r.reportDepth()

		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
		// Failures are logged and counted inside write.
		_ = r.write(ctx, "async", turn)
		cancel()
	}
}

func (r *Recorder) write(ctx context.Context, mode string, turn history.Turn) error {
	start := time.Now()
	err := history.AddTurn(ctx, r.store, turn)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		r.failed.Add(1)
		r.logger.Error("failed to store turn",
			"mode", mode,
			"request_id", turn.RequestID,
			"model", turn.Model,
			"error", err,
		)
	} else {
		r.written.Add(1)
		r.logger.Debug("turn recorded",
			"mode", mode,
			"request_id", turn.RequestID,
			"messages", len(turn.Messages),
			"duration_ms", duration.Milliseconds(),
		)
		if duration > r.config.WriteTimeout/2 {
			r.logger.Warn("slow history write",
				"request_id", turn.RequestID,
				"duration_ms", duration.Milliseconds(),
				"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
			)
		}
	}

	if r.metrics != nil {
		r.metrics.RecordHistoryWrite(mode, result, duration)
	}
	return err
}

func (r *Recorder) reportDepth() {
	if r.metrics != nil {
		r.metrics.SetHistoryQueueDepth(len(r.queue))
	}
}
