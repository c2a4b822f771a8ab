package repository

import (
	"context"

	"github.com/last9death/maturmarket/internal/domain/model"
)

// -----------------------------
// Product cache
// -----------------------------

// ProductCacheRepository persists the last known state per product URL so
// repeated checks within the cache TTL cost no HTTP request.
type ProductCacheRepository interface {
	Upsert(ctx context.Context, p *model.Product) error
	Find(ctx context.Context, url string) (*model.Product, error)
	Count(ctx context.Context) (int, error)
}
