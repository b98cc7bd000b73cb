package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/xelth-com/catalogbot/internal/database"
	"github.com/xelth-com/catalogbot/internal/models"
)

// HardDeleter is the part of Service the sweeper needs
type HardDeleter interface {
	HardDelete(ctx context.Context, id uint) (bool, error)
}

// Sweeper permanently removes products that stayed soft-deleted past the
// retention window.
type Sweeper struct {
	db      *database.DB
	deleter HardDeleter
	logger  *slog.Logger
	now     func() time.Time
}

// NewSweeper creates a sweeper that hard-deletes through deleter
func NewSweeper(db *database.DB, deleter HardDeleter, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{db: db, deleter: deleter, logger: logger, now: time.Now}
}

// Sweep hard-deletes every product soft-deleted at least daysOld days ago.
// Each product is deleted on its own; a failure is logged and the batch
// continues. Returns the number of products removed.
func (sw *Sweeper) Sweep(ctx context.Context, daysOld int) (int, error) {
	const op = "retention_sweep"
	if daysOld < 0 {
		return 0, validationError(op, "days must not be negative")
	}
	cutoff := sw.now().UTC().Add(-time.Duration(daysOld) * 24 * time.Hour)

	var ids []uint
	if err := sw.db.WithContext(ctx).Unscoped().
		Model(&models.Product{}).
		Where("deleted_at IS NOT NULL AND deleted_at <= ?", cutoff).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		sw.logger.Error("retention query failed", "op", op, "error", err)
		return 0, dbError(op, 0, err)
	}

	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, err := sw.deleter.HardDelete(ctx, id); err != nil {
			sw.logger.Warn("retention hard delete failed", "op", op, "product_id", id, "error", err)
			continue
		}
		removed++
	}

	sw.logger.Info("retention sweep finished", "op", op, "eligible", len(ids), "removed", removed, "cutoff", cutoff)
	return removed, nil
}

// Run sweeps every interval until ctx is cancelled
func (sw *Sweeper) Run(ctx context.Context, interval time.Duration, daysOld int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.Sweep(ctx, daysOld); err != nil {
				sw.logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}
