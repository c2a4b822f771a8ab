package model

import (
	"time"

	"github.com/last9death/maturmarket/internal/domain"
)

// User is a Telegram user known to the bot. ID is the storage row id;
// TelegramID is the stable external identity.
type User struct {
	ID         int64
	TelegramID int64
	CreatedAt  time.Time
}

func NewUser(tgID int64) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		TelegramID: tgID,
		CreatedAt:  time.Now(),
	}, nil
}
