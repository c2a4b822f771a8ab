package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/application"
	"github.com/last9death/maturmarket/internal/config"
	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
	"github.com/last9death/maturmarket/internal/infra/i18n"
	"github.com/last9death/maturmarket/internal/infra/logging"
	"github.com/last9death/maturmarket/internal/infra/metrics"
)

// Compile-time check
var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter polls Telegram for updates and routes them into the
// bot facade. Sending goes through the adapter port, so the watch worker can
// share the same instance.
type RealTelegramBotAdapter struct {
	bot        *tgbotapi.BotAPI
	cfg        *config.BotConfig
	facade     *application.BotFacade
	translator *i18n.Translator
	log        *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	facade *application.BotFacade,
	translator *i18n.Translator,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if translator == nil {
		return nil, errors.New("translator is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	compLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		translator:    translator,
		log:           &compLog,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}, nil
}

// StartPolling consumes the long-poll update stream until the context ends.
// Updates fan out over a small worker pool so one slow product check does not
// stall every other chat.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					upCtx := logging.WithTraceID(ctx, uuid.NewString())
					if err := r.handleUpdate(upCtx, up); err != nil {
						logging.With(upCtx, r.log).Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	r.log.Info().Int("workers", r.updateWorkers).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			r.log.Info().Msg("telegram polling stopped")
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	message := update.Message
	if message == nil || message.From == nil {
		return nil
	}
	// Free text outside a command is ignored, same as unknown commands.
	if !message.IsCommand() {
		return nil
	}

	handler, ok := r.commandRoutes()[message.Command()]
	if !ok {
		return nil
	}
	ctx = logging.WithTgID(ctx, message.From.ID)
	metrics.IncTelegramCommand("/" + message.Command())
	return handler(ctx, message)
}

// SendMessage implements the adapter port. Buttons with a URL open a link,
// buttons with Data round-trip through the callback routes.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := tgbotapi.NewMessage(p.ChatID, p.Text)
	if p.ParseMode != "" {
		msg.ParseMode = p.ParseMode
	}
	if markup, ok := inlineKeyboard(p.Buttons); ok {
		msg.ReplyMarkup = markup
	}
	_, err := r.bot.Send(msg)
	return err
}

func inlineKeyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				line = append(line, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				line = append(line, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				// safe fallback: use the label as callback data
				line = append(line, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, line)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}

// SetMenuCommands installs the command menu for one chat. Admins get the
// /stats and /scanout entries on top of the public set.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context, chatID int64, isAdmin bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	commands := []tgbotapi.BotCommand{
		{Command: "check", Description: r.translator.T("cmd_check_desc")},
		{Command: "find", Description: r.translator.T("cmd_find_desc")},
		{Command: "watch", Description: r.translator.T("cmd_watch_desc")},
		{Command: "watchlist", Description: r.translator.T("cmd_watchlist_desc")},
		{Command: "unwatch", Description: r.translator.T("cmd_unwatch_desc")},
		{Command: "help", Description: r.translator.T("cmd_help_desc")},
	}
	if isAdmin {
		commands = append(commands,
			tgbotapi.BotCommand{Command: "stats", Description: r.translator.T("cmd_stats_desc")},
			tgbotapi.BotCommand{Command: "scanout", Description: r.translator.T("cmd_scanout_desc")},
		)
	}

	scoped := tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(chatID), commands...)
	_, err := r.bot.Request(scoped)
	return err
}

// sendReplies forwards facade output to one chat, in order.
func (r *RealTelegramBotAdapter) sendReplies(ctx context.Context, chatID int64, replies []application.Reply) error {
	for _, reply := range replies {
		err := r.SendMessage(ctx, adapter.SendMessageParams{
			ChatID:    chatID,
			Text:      reply.Text,
			ParseMode: reply.ParseMode,
			Buttons:   reply.Buttons,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *RealTelegramBotAdapter) sendText(ctx context.Context, chatID int64, key string) error {
	return r.SendMessage(ctx, adapter.SendMessageParams{ChatID: chatID, Text: r.translator.T(key)})
}
