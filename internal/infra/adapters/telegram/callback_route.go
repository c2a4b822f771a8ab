package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/last9death/maturmarket/internal/application"
	"github.com/last9death/maturmarket/internal/infra/logging"
)

type cbHandler func(ctx context.Context, tgID, chatID int64, payload string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// cbPrefixRoutes wires the button payloads built in the facade back to the
// same handlers the slash commands use.
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{
			Prefix: application.CallbackCheck,
			Fn:     r.checkPrefixCBRoute,
		},
		{
			Prefix: application.CallbackWatch,
			Fn:     r.watchPrefixCBRoute,
		},
		{
			Prefix: application.CallbackUnwatch,
			Fn:     r.unwatchPrefixCBRoute,
		},
	}
}

func (r *RealTelegramBotAdapter) checkPrefixCBRoute(ctx context.Context, tgID, chatID int64, payload string) error {
	return r.sendReplies(ctx, chatID, r.facade.HandleCheck(ctx, tgID, payload))
}

func (r *RealTelegramBotAdapter) watchPrefixCBRoute(ctx context.Context, tgID, chatID int64, payload string) error {
	return r.sendReplies(ctx, chatID, r.facade.HandleWatch(ctx, tgID, payload))
}

func (r *RealTelegramBotAdapter) unwatchPrefixCBRoute(ctx context.Context, tgID, chatID int64, payload string) error {
	watchID, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		return r.sendText(ctx, chatID, "error_watch_id_number")
	}
	return r.sendReplies(ctx, chatID, r.facade.HandleUnwatch(ctx, tgID, watchID))
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	var chatID int64
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	} else {
		chatID = query.From.ID
	}
	if chatID == 0 {
		return nil
	}

	ctx = logging.WithTgID(ctx, query.From.ID)
	data := strings.TrimSpace(query.Data)
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, query.From.ID, chatID, strings.TrimPrefix(data, pr.Prefix))
		}
	}

	// Stale buttons from older builds land here.
	logging.With(ctx, r.log).Debug().Str("data", data).Msg("unknown callback data")
	return nil
}
