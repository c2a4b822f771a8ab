package repository

import (
	"context"

	"github.com/last9death/maturmarket/internal/domain/model"
)

// -----------------------------
// Scan runs
// -----------------------------

type ScanRunRepository interface {
	Save(ctx context.Context, run *model.ScanRun) error
	FindLatest(ctx context.Context) (*model.ScanRun, error)
}
