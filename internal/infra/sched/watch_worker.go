package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/application"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
	"github.com/last9death/maturmarket/internal/infra/metrics"
)

// startupDelay gives polling and the ops server a head start before the first
// watch cycle hits the site.
const startupDelay = 10 * time.Second

// watchNotifier is the slice of the bot facade the worker needs.
type watchNotifier interface {
	WatchCycle(ctx context.Context) ([]application.WatchAlert, error)
	ConfirmAlert(ctx context.Context, watchID int64, status model.AvailabilityStatus) error
}

var _ watchNotifier = (*application.BotFacade)(nil)

// WatchWorker periodically re-checks every active watch and delivers the
// change notifications.
type WatchWorker struct {
	interval time.Duration
	notifier watchNotifier
	bot      adapter.TelegramBotAdapter
	log      *zerolog.Logger
}

func NewWatchWorker(interval time.Duration, notifier watchNotifier, bot adapter.TelegramBotAdapter, logger *zerolog.Logger) *WatchWorker {
	compLog := logger.With().Str("component", "WatchWorker").Logger()
	return &WatchWorker{
		interval: interval,
		notifier: notifier,
		bot:      bot,
		log:      &compLog,
	}
}

func (w *WatchWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting watch worker")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(startupDelay):
	}
	w.runCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping watch worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *WatchWorker) runCycle(ctx context.Context) {
	alerts, err := w.notifier.WatchCycle(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("watch cycle failed")
		return
	}

	sent := 0
	for _, alert := range alerts {
		err := w.bot.SendMessage(ctx, adapter.SendMessageParams{
			ChatID: alert.ChatID,
			Text:   alert.Text,
		})
		if err != nil {
			w.log.Warn().Err(err).
				Int64("chat_id", alert.ChatID).
				Int64("watch_id", alert.WatchID).
				Msg("notification delivery failed")
			continue
		}
		metrics.IncNotificationSent()
		// Recorded after the send, so the stored notified status matches
		// what the owner actually saw.
		if err := w.notifier.ConfirmAlert(ctx, alert.WatchID, alert.Status); err != nil {
			w.log.Error().Err(err).Int64("watch_id", alert.WatchID).Msg("failed to record delivery")
		}
		sent++
	}
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("watch notifications sent")
	}
}
