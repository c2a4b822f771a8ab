package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/application"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
)

type fakeNotifier struct {
	alerts    []application.WatchAlert
	err       error
	confirmed []int64
}

func (f *fakeNotifier) WatchCycle(context.Context) ([]application.WatchAlert, error) {
	return f.alerts, f.err
}

func (f *fakeNotifier) ConfirmAlert(_ context.Context, watchID int64, _ model.AvailabilityStatus) error {
	f.confirmed = append(f.confirmed, watchID)
	return nil
}

type fakeBot struct {
	sent       []adapter.SendMessageParams
	failChatID int64
}

func (f *fakeBot) SendMessage(_ context.Context, p adapter.SendMessageParams) error {
	if f.failChatID != 0 && p.ChatID == f.failChatID {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeBot) SetMenuCommands(context.Context, int64, bool) error { return nil }

func newTestWorker(notifier *fakeNotifier, bot *fakeBot) *WatchWorker {
	logger := zerolog.Nop()
	return NewWatchWorker(time.Minute, notifier, bot, &logger)
}

func TestWatchWorker_DeliversAndConfirmsAlerts(t *testing.T) {
	notifier := &fakeNotifier{
		alerts: []application.WatchAlert{
			{ChatID: 42, WatchID: 1, Status: model.StatusOutOfStock, Text: "первый"},
			{ChatID: 43, WatchID: 2, Status: model.StatusInStock, Text: "второй"},
		},
	}
	bot := &fakeBot{}

	newTestWorker(notifier, bot).runCycle(context.Background())

	if len(bot.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(bot.sent))
	}
	if bot.sent[0].ChatID != 42 || bot.sent[0].Text != "первый" {
		t.Errorf("unexpected first delivery %+v", bot.sent[0])
	}
	if len(notifier.confirmed) != 2 || notifier.confirmed[0] != 1 || notifier.confirmed[1] != 2 {
		t.Errorf("expected confirmations for watches 1 and 2, got %v", notifier.confirmed)
	}
}

func TestWatchWorker_SkipsConfirmWhenDeliveryFails(t *testing.T) {
	notifier := &fakeNotifier{
		alerts: []application.WatchAlert{
			{ChatID: 42, WatchID: 1, Status: model.StatusOutOfStock, Text: "не дойдёт"},
			{ChatID: 43, WatchID: 2, Status: model.StatusInStock, Text: "дойдёт"},
		},
	}
	bot := &fakeBot{failChatID: 42}

	newTestWorker(notifier, bot).runCycle(context.Background())

	if len(bot.sent) != 1 {
		t.Fatalf("expected only the healthy chat to receive a message, got %d", len(bot.sent))
	}
	if len(notifier.confirmed) != 1 || notifier.confirmed[0] != 2 {
		t.Errorf("expected only watch 2 to be confirmed, got %v", notifier.confirmed)
	}
}

func TestWatchWorker_SendsNothingWhenCycleFails(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("db down")}
	bot := &fakeBot{}

	newTestWorker(notifier, bot).runCycle(context.Background())

	if len(bot.sent) != 0 {
		t.Errorf("expected no deliveries after a failed cycle, got %d", len(bot.sent))
	}
}

func TestWatchWorker_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	worker := newTestWorker(&fakeNotifier{}, &fakeBot{})

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
