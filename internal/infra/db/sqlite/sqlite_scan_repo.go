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

var _ repository.ScanRunRepository = (*SQLiteScanRunRepo)(nil)

type SQLiteScanRunRepo struct {
	db *sql.DB
}

func NewSQLiteScanRunRepo(db *sql.DB) *SQLiteScanRunRepo {
	return &SQLiteScanRunRepo{db: db}
}

func (r *SQLiteScanRunRepo) Save(ctx context.Context, run *model.ScanRun) error {
	const q = `
INSERT INTO scan_runs (id, admin_tg_id, started_at, finished_at, checked, out_of_stock)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  finished_at = excluded.finished_at,
  checked = excluded.checked,
  out_of_stock = excluded.out_of_stock;
`
	_, err := r.db.ExecContext(ctx, q,
		run.ID, run.AdminTgID, storeTime(run.StartedAt), storeNullTime(run.FinishedAt),
		run.Checked, run.OutOfStock,
	)
	if err != nil {
		return fmt.Errorf("save scan run %s: %w", run.ID, err)
	}
	return nil
}

func (r *SQLiteScanRunRepo) FindLatest(ctx context.Context) (*model.ScanRun, error) {
	const q = `
SELECT id, admin_tg_id, started_at, finished_at, checked, out_of_stock
  FROM scan_runs ORDER BY started_at DESC LIMIT 1;
`
	var (
		run      model.ScanRun
		started  string
		finished sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, q).Scan(&run.ID, &run.AdminTgID, &started, &finished, &run.Checked, &run.OutOfStock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t, err := readTime(started)
	if err != nil {
		return nil, err
	}
	run.StartedAt = t
	if finished.Valid {
		ft, err := readTime(finished.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &ft
	}
	return &run, nil
}
