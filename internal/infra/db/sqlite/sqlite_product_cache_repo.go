package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/repository"
)

var _ repository.ProductCacheRepository = (*SQLiteProductCacheRepo)(nil)

// SQLiteProductCacheRepo keeps one summary row per product URL. Gallery and
// parse signals are not cached, only what cards and notifications need.
type SQLiteProductCacheRepo struct {
	db *sql.DB
}

func NewSQLiteProductCacheRepo(db *sql.DB) *SQLiteProductCacheRepo {
	return &SQLiteProductCacheRepo{db: db}
}

func (r *SQLiteProductCacheRepo) Upsert(ctx context.Context, p *model.Product) error {
	const q = `
INSERT INTO product_cache (product_url, title, last_price, last_status, last_checked_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (product_url) DO UPDATE SET
  title = excluded.title,
  last_price = excluded.last_price,
  last_status = excluded.last_status,
  last_checked_at = excluded.last_checked_at;
`
	_, err := r.db.ExecContext(ctx, q,
		p.URL, p.Title, storeNullFloat(p.Price), string(p.Availability), storeTime(p.CheckedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert product cache %s: %w", p.URL, err)
	}
	return nil
}

func (r *SQLiteProductCacheRepo) Find(ctx context.Context, url string) (*model.Product, error) {
	const q = `
SELECT product_url, title, last_price, last_status, last_checked_at
  FROM product_cache WHERE product_url = ?;
`
	var (
		p       model.Product
		price   sql.NullFloat64
		status  string
		checked string
	)
	if err := r.db.QueryRowContext(ctx, q, url).Scan(&p.URL, &p.Title, &price, &status, &checked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t, err := readTime(checked)
	if err != nil {
		return nil, err
	}
	p.Price = readNullFloat(price)
	p.Availability = model.AvailabilityStatus(status)
	p.CheckedAt = t
	p.Currency = "RUB"
	return &p, nil
}

func (r *SQLiteProductCacheRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_cache;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached products: %w", err)
	}
	return n, nil
}
