package repository

import (
	"context"

	"github.com/last9death/maturmarket/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Save inserts the user or refreshes it by telegram id. The storage row
	// id is written back into u.ID.
	Save(ctx context.Context, u *model.User) error
	FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Count(ctx context.Context) (int, error)
}
