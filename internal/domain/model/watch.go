package model

import (
	"strings"
	"time"

	"github.com/last9death/maturmarket/internal/domain"
)

// Watch is a subscription of one user to availability changes of one URL.
// Deactivated watches stay in storage (soft delete) so /unwatch is reversible
// by support without restoring backups.
type Watch struct {
	ID                 int64
	UserID             int64
	ProductURL         string
	CreatedAt          time.Time
	LastStatus         AvailabilityStatus
	LastPrice          *float64
	LastNotifiedStatus AvailabilityStatus
	Active             bool
}

func NewWatch(userID int64, productURL string) (*Watch, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(productURL) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Watch{
		UserID:     userID,
		ProductURL: productURL,
		CreatedAt:  time.Now(),
		Active:     true,
	}, nil
}

// ShouldNotify reports whether a freshly checked product warrants a message
// to the watch owner. The receiver must still hold the pre-check state: the
// status changed against it, or the price moved to a new non-nil value.
func (w *Watch) ShouldNotify(p *Product) bool {
	if p == nil {
		return false
	}
	if p.Availability != w.LastStatus {
		return true
	}
	if p.Price != nil && (w.LastPrice == nil || *w.LastPrice != *p.Price) {
		return true
	}
	return false
}
