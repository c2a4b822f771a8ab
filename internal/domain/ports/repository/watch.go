package repository

import (
	"context"

	"github.com/last9death/maturmarket/internal/domain/model"
)

// -----------------------------
// Watches
// -----------------------------

type WatchRepository interface {
	// Add inserts an active watch and writes the row id back into w.ID.
	Add(ctx context.Context, w *model.Watch) error
	ListActiveByUser(ctx context.Context, userID int64) ([]*model.Watch, error)
	ListActive(ctx context.Context) ([]*model.Watch, error)
	// Deactivate soft-deletes the user's watch. Returns domain.ErrWatchNotFound
	// when the watch does not exist, is inactive, or belongs to someone else.
	Deactivate(ctx context.Context, userID, watchID int64) error
	UpdateStatus(ctx context.Context, watchID int64, status model.AvailabilityStatus, price *float64) error
	UpdateNotifiedStatus(ctx context.Context, watchID int64, status model.AvailabilityStatus) error
	CountActive(ctx context.Context) (int, error)
}
