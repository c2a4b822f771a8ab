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
var _ WatchUseCase = (*watchUC)(nil)

// Notification is one pending message from a watch cycle: the product changed
// in a way the watch owner asked to hear about.
type Notification struct {
	// ChatID is the owner's Telegram chat.
	ChatID int64
	// Watch holds the pre-check state the change was detected against.
	Watch   *model.Watch
	Product *model.Product
}

// WatchUseCase manages availability subscriptions and the periodic check
// over all of them.
type WatchUseCase interface {
	Add(ctx context.Context, userID int64, productURL string) (*model.Watch, error)
	List(ctx context.Context, userID int64) ([]*model.Watch, error)
	Remove(ctx context.Context, userID, watchID int64) error
	// CheckAll re-checks every active watch, persists the fresh state and
	// returns the notifications that should go out.
	CheckAll(ctx context.Context) ([]Notification, error)
	// MarkNotified records that the owner saw the given status, after the
	// message actually went out.
	MarkNotified(ctx context.Context, watchID int64, status model.AvailabilityStatus) error
}

type watchUC struct {
	watches  repository.WatchRepository
	users    repository.UserRepository
	products ProductUseCase
	log      *zerolog.Logger
}

func NewWatchUseCase(
	watches repository.WatchRepository,
	users repository.UserRepository,
	products ProductUseCase,
	logger *zerolog.Logger,
) *watchUC {
	return &watchUC{
		watches:  watches,
		users:    users,
		products: products,
		log:      logger,
	}
}

func (w *watchUC) Add(ctx context.Context, userID int64, productURL string) (*model.Watch, error) {
	defer logging.TraceDuration(w.log, "WatchUC.Add")()

	urlStr, _, err := normalizeProductURL(productURL)
	if err != nil {
		return nil, err
	}
	watch, err := model.NewWatch(userID, urlStr)
	if err != nil {
		return nil, err
	}
	if err := w.watches.Add(ctx, watch); err != nil {
		return nil, err
	}
	w.log.Info().Int64("user_id", userID).Int64("watch_id", watch.ID).Str("url", urlStr).Msg("watch added")
	return watch, nil
}

func (w *watchUC) List(ctx context.Context, userID int64) ([]*model.Watch, error) {
	defer logging.TraceDuration(w.log, "WatchUC.List")()
	return w.watches.ListActiveByUser(ctx, userID)
}

func (w *watchUC) Remove(ctx context.Context, userID, watchID int64) error {
	defer logging.TraceDuration(w.log, "WatchUC.Remove")()

	if err := w.watches.Deactivate(ctx, userID, watchID); err != nil {
		return err
	}
	w.log.Info().Int64("user_id", userID).Int64("watch_id", watchID).Msg("watch removed")
	return nil
}

func (w *watchUC) CheckAll(ctx context.Context) ([]Notification, error) {
	defer logging.TraceDuration(w.log, "WatchUC.CheckAll")()

	watches, err := w.watches.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Notification
	for _, watch := range watches {
		if ctx.Err() != nil {
			return pending, ctx.Err()
		}

		owner, err := w.users.FindByID(ctx, watch.UserID)
		if err != nil {
			metrics.IncWatchCheck("failed")
			w.log.Warn().Err(err).Int64("watch_id", watch.ID).Int64("user_id", watch.UserID).Msg("watch owner lookup failed")
			continue
		}

		// The owner's hourly budget covers background checks too, so a pile
		// of watches degrades to fewer refreshes instead of more traffic.
		product, err := w.products.Check(ctx, owner.TelegramID, watch.ProductURL)
		if err != nil {
			if ctx.Err() != nil {
				return pending, ctx.Err()
			}
			if errors.Is(err, domain.ErrUserRateLimited) || errors.Is(err, domain.ErrDomainRateLimited) {
				metrics.IncWatchCheck("limited")
				continue
			}
			metrics.IncWatchCheck("failed")
			w.log.Warn().Err(err).Int64("watch_id", watch.ID).Str("url", watch.ProductURL).Msg("watch check failed")
			continue
		}
		if !parsedStatus(product.Availability) {
			// Unreachable or blocked pages keep the last known state. A site
			// outage must not fan out into change notifications.
			metrics.IncWatchCheck("skipped")
			continue
		}

		notify := watch.ShouldNotify(product)
		if err := w.watches.UpdateStatus(ctx, watch.ID, product.Availability, product.Price); err != nil {
			metrics.IncWatchCheck("failed")
			w.log.Warn().Err(err).Int64("watch_id", watch.ID).Msg("watch status update failed")
			continue
		}
		if !notify {
			metrics.IncWatchCheck("silent")
			continue
		}

		metrics.IncWatchCheck("notified")
		pending = append(pending, Notification{
			ChatID:  owner.TelegramID,
			Watch:   watch,
			Product: product,
		})
	}
	return pending, nil
}

func (w *watchUC) MarkNotified(ctx context.Context, watchID int64, status model.AvailabilityStatus) error {
	return w.watches.UpdateNotifiedStatus(ctx, watchID, status)
}
