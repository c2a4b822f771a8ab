package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/repository"
)

var _ repository.WatchRepository = (*SQLiteWatchRepo)(nil)

type SQLiteWatchRepo struct {
	db *sql.DB
}

func NewSQLiteWatchRepo(db *sql.DB) *SQLiteWatchRepo {
	return &SQLiteWatchRepo{db: db}
}

const watchColumns = `id, user_id, product_url, created_at, last_status, last_price, last_notified_status, is_active`

func (r *SQLiteWatchRepo) Add(ctx context.Context, w *model.Watch) error {
	const q = `
INSERT INTO watches (user_id, product_url, created_at, last_status, last_price, last_notified_status, is_active)
VALUES (?, ?, ?, ?, ?, ?, 1)
RETURNING id;
`
	err := r.db.QueryRowContext(ctx, q,
		w.UserID, w.ProductURL, storeTime(w.CreatedAt),
		string(w.LastStatus), storeNullFloat(w.LastPrice), string(w.LastNotifiedStatus),
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("add watch user=%d: %w", w.UserID, err)
	}
	w.Active = true
	return nil
}

func (r *SQLiteWatchRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*model.Watch, error) {
	q := `SELECT ` + watchColumns + ` FROM watches WHERE user_id = ? AND is_active = 1 ORDER BY id;`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list watches user=%d: %w", userID, err)
	}
	defer rows.Close()
	return scanWatches(rows)
}

func (r *SQLiteWatchRepo) ListActive(ctx context.Context) ([]*model.Watch, error) {
	q := `SELECT ` + watchColumns + ` FROM watches WHERE is_active = 1 ORDER BY id;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active watches: %w", err)
	}
	defer rows.Close()
	return scanWatches(rows)
}

func (r *SQLiteWatchRepo) Deactivate(ctx context.Context, userID, watchID int64) error {
	const q = `UPDATE watches SET is_active = 0 WHERE id = ? AND user_id = ? AND is_active = 1;`
	res, err := r.db.ExecContext(ctx, q, watchID, userID)
	if err != nil {
		return fmt.Errorf("deactivate watch %d: %w", watchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrWatchNotFound
	}
	return nil
}

func (r *SQLiteWatchRepo) UpdateStatus(ctx context.Context, watchID int64, status model.AvailabilityStatus, price *float64) error {
	const q = `UPDATE watches SET last_status = ?, last_price = ? WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, string(status), storeNullFloat(price), watchID)
	if err != nil {
		return fmt.Errorf("update watch %d status: %w", watchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrWatchNotFound
	}
	return nil
}

func (r *SQLiteWatchRepo) UpdateNotifiedStatus(ctx context.Context, watchID int64, status model.AvailabilityStatus) error {
	const q = `UPDATE watches SET last_notified_status = ? WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, string(status), watchID)
	if err != nil {
		return fmt.Errorf("update watch %d notified status: %w", watchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrWatchNotFound
	}
	return nil
}

func (r *SQLiteWatchRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watches WHERE is_active = 1;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active watches: %w", err)
	}
	return n, nil
}

func scanWatches(rows *sql.Rows) ([]*model.Watch, error) {
	var out []*model.Watch
	for rows.Next() {
		var (
			w        model.Watch
			created  string
			status   string
			price    sql.NullFloat64
			notified string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.ProductURL, &created, &status, &price, &notified, &w.Active); err != nil {
			return nil, err
		}
		t, err := readTime(created)
		if err != nil {
			return nil, err
		}
		w.CreatedAt = t
		w.LastStatus = model.AvailabilityStatus(status)
		w.LastPrice = readNullFloat(price)
		w.LastNotifiedStatus = model.AvailabilityStatus(notified)
		out = append(out, &w)
	}
	return out, rows.Err()
}
