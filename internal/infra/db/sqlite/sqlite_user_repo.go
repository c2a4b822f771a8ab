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

var _ repository.UserRepository = (*SQLiteUserRepo)(nil)

type SQLiteUserRepo struct {
	db *sql.DB
}

func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db}
}

func (r *SQLiteUserRepo) Save(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (tg_id, created_at) VALUES (?, ?)
ON CONFLICT (tg_id) DO UPDATE SET tg_id = excluded.tg_id
RETURNING id, created_at;
`
	var created string
	if err := r.db.QueryRowContext(ctx, q, u.TelegramID, storeTime(u.CreatedAt)).Scan(&u.ID, &created); err != nil {
		return fmt.Errorf("save user tg_id=%d: %w", u.TelegramID, err)
	}
	t, err := readTime(created)
	if err != nil {
		return err
	}
	u.CreatedAt = t
	return nil
}

func (r *SQLiteUserRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	const q = `SELECT id, tg_id, created_at FROM users WHERE tg_id = ?;`
	return r.findOne(ctx, q, tgID)
}

func (r *SQLiteUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT id, tg_id, created_at FROM users WHERE id = ?;`
	return r.findOne(ctx, q, id)
}

func (r *SQLiteUserRepo) findOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var (
		u       model.User
		created string
	)
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.TelegramID, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t, err := readTime(created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

func (r *SQLiteUserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
