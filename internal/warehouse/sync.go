// Package warehouse drains terminal ledger rows to an external analytics
// sink. It depends only on the ledger's append-only contract: rows are
// immutable once terminal and their ids increase monotonically, so a plain
// high-water mark never duplicates or loses a row.
package warehouse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/acmebank/mts-backend/internal/metrics"
	"github.com/acmebank/mts-backend/internal/models"
	repo "github.com/acmebank/mts-backend/internal/repository"
	"github.com/acmebank/mts-backend/internal/worker"
)

// Sink receives exported ledger batches. Rows arrive in ascending id order
// and a batch is never re-sent after Export returns nil.
type Sink interface {
	Export(ctx context.Context, rows []models.TransactionLog) error
}

// LogSink writes batch summaries to the structured log. Stands in for a real
// warehouse connection in dev and tests.
type LogSink struct{}

func (LogSink) Export(_ context.Context, rows []models.TransactionLog) error {
	if len(rows) == 0 {
		return nil
	}
	slog.Info("warehouse export",
		"rows", len(rows),
		"first_id", rows[0].ID,
		"last_id", rows[len(rows)-1].ID,
	)
	return nil
}

type Syncer struct {
	logs      repo.TransactionLogs
	sink      Sink
	batchSize int

	mu        sync.Mutex
	watermark int64
}

func NewSyncer(logs repo.TransactionLogs, sink Sink, batchSize int) *Syncer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Syncer{logs: logs, sink: sink, batchSize: batchSize}
}

// SyncOnce drains everything above the watermark in batches and returns the
// number of exported rows. The watermark only advances after a batch export
// succeeds, so a failed export is retried on the next run.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for {
		rows, err := s.logs.ListAfterID(ctx, s.watermark, s.batchSize)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			return total, nil
		}
		if err := s.sink.Export(ctx, rows); err != nil {
			return total, err
		}
		s.watermark = rows[len(rows)-1].ID
		metrics.WarehouseWatermark.Set(float64(s.watermark))
		total += len(rows)
	}
}

// Watermark returns the highest exported ledger id.
func (s *Syncer) Watermark() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// Run schedules SyncOnce on the worker pool at the given interval until ctx
// is done.
func (s *Syncer) Run(ctx context.Context, pool *worker.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.Submit(func() {
				if _, err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
					slog.Error("warehouse sync", "err", err)
				}
			})
		}
	}
}
