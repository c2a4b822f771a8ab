package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/repository"
	"github.com/last9death/maturmarket/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Stats is the admin /stats snapshot.
type Stats struct {
	Users          int
	ActiveWatches  int
	CachedProducts int
	// LastScan is nil until the first /scanout ran.
	LastScan *model.ScanRun
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	users   repository.UserRepository
	watches repository.WatchRepository
	cache   repository.ProductCacheRepository
	scans   repository.ScanRunRepository
	log     *zerolog.Logger
}

func NewStatsUseCase(
	users repository.UserRepository,
	watches repository.WatchRepository,
	cache repository.ProductCacheRepository,
	scans repository.ScanRunRepository,
	logger *zerolog.Logger,
) *statsUC {
	return &statsUC{users: users, watches: watches, cache: cache, scans: scans, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*Stats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Totals")()

	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	watches, err := s.watches.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := s.cache.Count(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Users: users, ActiveWatches: watches, CachedProducts: cached}

	last, err := s.scans.FindLatest(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	st.LastScan = last
	return st, nil
}
