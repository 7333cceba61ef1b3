package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = 4 * time.Minute

var orphanBlobsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pyq_orphan_blobs_deleted_total",
	Help: "Stored PYQ files removed because no record referenced them.",
})

// OrphanSweeper removes stored files that no PYQ record references, such as
// those left behind when both a record write and its blob rollback failed.
// Files younger than the grace period are skipped so in-flight uploads are
// never touched.
type OrphanSweeper struct {
	pyqs  domain.PyqRepository
	blobs domain.BlobStore
	grace time.Duration
	now   func() time.Time
}

// NewOrphanSweeper creates a new OrphanSweeper.
func NewOrphanSweeper(pyqs domain.PyqRepository, blobs domain.BlobStore, grace time.Duration) *OrphanSweeper {
	return &OrphanSweeper{pyqs: pyqs, blobs: blobs, grace: grace, now: time.Now}
}

// Sweep runs one pass and returns how many files were deleted. A failed
// delete is logged and the pass continues.
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	blobs, err := s.blobs.List(ctx, BlobPrefix)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}

	threshold := s.now().Add(-s.grace)
	deleted := 0
	for _, b := range blobs {
		if !b.LastModified.Before(threshold) {
			continue
		}
		referenced, err := s.pyqs.ExistsByBlobKey(ctx, b.Key)
		if err != nil {
			return deleted, fmt.Errorf("check blob key: %w", err)
		}
		if referenced {
			continue
		}
		if err := s.blobs.Delete(ctx, b.Key); err != nil {
			slog.Error("delete orphan pyq file", "key", b.Key, "error", err)
			continue
		}
		deleted++
		orphanBlobsDeletedTotal.Inc()
		slog.Info("orphan pyq file deleted", "key", b.Key)
	}

	return deleted, nil
}

// Schedule registers the sweep on a cron scheduler. Overlapping runs are
// skipped. The caller starts and stops the returned scheduler.
func (s *OrphanSweeper) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		n, err := s.Sweep(ctx)
		if err != nil {
			slog.Error("orphan sweep", "error", err)
			return
		}
		slog.Info("orphan sweep finished", "deleted", n)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule orphan sweep %q: %w", spec, err)
	}
	return c, nil
}
