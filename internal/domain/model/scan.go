package model

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/last9death/maturmarket/internal/domain"
)

// ScanRun records one /scanout pass over the site's sitemap.
type ScanRun struct {
	ID         string
	AdminTgID  int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Checked    int
	OutOfStock int
}

func NewScanRun(adminTgID int64) (*ScanRun, error) {
	if adminTgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &ScanRun{
		ID:        ulid.Make().String(),
		AdminTgID: adminTgID,
		StartedAt: time.Now(),
	}, nil
}

func (s *ScanRun) Finish(checked, outOfStock int) {
	now := time.Now()
	s.FinishedAt = &now
	s.Checked = checked
	s.OutOfStock = outOfStock
}
