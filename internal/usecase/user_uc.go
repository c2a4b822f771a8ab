package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/repository"
	"github.com/last9death/maturmarket/internal/infra/logging"
	"github.com/last9death/maturmarket/internal/infra/metrics"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-related operations used by bot flows.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, tgID int64) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, log: logger}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	usr, err := u.users.FindByTelegramID(ctx, tgID)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	nu, err := model.NewUser(tgID)
	if err != nil {
		return nil, err
	}
	// Save is an upsert keyed on tg_id, so a concurrent registration of the
	// same user resolves to one row.
	if err := u.users.Save(ctx, nu); err != nil {
		u.log.Error().Err(err).Int64("tg_id", tgID).Msg("failed to register user")
		return nil, err
	}
	metrics.IncUsersRegistered()
	u.log.Info().Int64("tg_id", tgID).Msg("new user registered")
	return nu, nil
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.Count(ctx)
}
