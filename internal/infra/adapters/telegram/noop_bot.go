package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev runs.
// It logs messages instead of sending real Telegram messages.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

// NewNoopBotAdapter constructs the noop adapter.
func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	compLog := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &compLog}
}

// SendMessage logs the message and simulates a small delay.
func (b *NoopBotAdapter) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	b.log.Info().
		Int64("chat_id", p.ChatID).
		Str("parse_mode", p.ParseMode).
		Int("button_rows", len(p.Buttons)).
		Str("text", p.Text).
		Msg("noop send")
	return nil
}

// SetMenuCommands logs the call details.
func (b *NoopBotAdapter) SetMenuCommands(_ context.Context, chatID int64, isAdmin bool) error {
	b.log.Info().Int64("chat_id", chatID).Bool("admin", isAdmin).Msg("noop set menu commands")
	return nil
}
