package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/last9death/maturmarket/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers. The
// handlers own argument parsing; the facade only sees typed values.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":     r.handleStartCommand,
		"help":      r.handleStartCommand,
		"check":     r.handleCheckCommand,
		"find":      r.handleFindCommand,
		"watch":     r.handleWatchCommand,
		"watchlist": r.handleWatchlistCommand,
		"unwatch":   r.handleUnwatchCommand,

		// These handlers are wrapped in our adminOnly middleware.
		"stats":   r.adminOnly(r.handleStatsCommand),
		"scanout": r.adminOnly(r.handleScanOutCommand),
	}
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if _, isAdmin := r.adminIDsMap[message.From.ID]; !isAdmin {
			metrics.IncAdminCommand("/"+message.Command(), "unauthorized")
			return r.sendText(ctx, message.Chat.ID, "error_unauthorized")
		}
		metrics.IncAdminCommand("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

// handleStartCommand handles /start and /help.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	if err := r.sendReplies(ctx, message.Chat.ID, r.facade.HandleStart(ctx, message.From.ID)); err != nil {
		return err
	}

	_, isAdmin := r.adminIDsMap[message.From.ID]
	if err := r.SetMenuCommands(ctx, message.Chat.ID, isAdmin); err != nil {
		// Log the error but don't block the user
		r.log.Warn().Err(err).Int64("tg_id", message.From.ID).Msg("failed to set menu commands")
	}
	return nil
}

// handleCheckCommand handles /check <url>.
func (r *RealTelegramBotAdapter) handleCheckCommand(ctx context.Context, message *tgbotapi.Message) error {
	rawURL := strings.TrimSpace(message.CommandArguments())
	if rawURL == "" {
		return r.sendText(ctx, message.Chat.ID, "usage_check")
	}
	return r.sendReplies(ctx, message.Chat.ID, r.facade.HandleCheck(ctx, message.From.ID, rawURL))
}

// handleFindCommand handles /find <query>.
func (r *RealTelegramBotAdapter) handleFindCommand(ctx context.Context, message *tgbotapi.Message) error {
	query := strings.TrimSpace(message.CommandArguments())
	if query == "" {
		return r.sendText(ctx, message.Chat.ID, "usage_find")
	}
	return r.sendReplies(ctx, message.Chat.ID, r.facade.HandleFind(ctx, message.From.ID, query))
}

// handleWatchCommand handles /watch <url>.
func (r *RealTelegramBotAdapter) handleWatchCommand(ctx context.Context, message *tgbotapi.Message) error {
	rawURL := strings.TrimSpace(message.CommandArguments())
	if rawURL == "" {
		return r.sendText(ctx, message.Chat.ID, "usage_watch")
	}
	return r.sendReplies(ctx, message.Chat.ID, r.facade.HandleWatch(ctx, message.From.ID, rawURL))
}

// handleWatchlistCommand handles /watchlist.
func (r *RealTelegramBotAdapter) handleWatchlistCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendReplies(ctx, message.Chat.ID, r.facade.HandleWatchlist(ctx, message.From.ID))
}

// handleUnwatchCommand handles /unwatch <id>.
func (r *RealTelegramBotAdapter) handleUnwatchCommand(ctx context.Context, message *tgbotapi.Message) error {
	args := strings.Fields(message.CommandArguments())
	if len(args) == 0 {
		return r.sendText(ctx, message.Chat.ID, "usage_unwatch")
	}
	watchID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return r.sendText(ctx, message.Chat.ID, "error_watch_id_number")
	}
	return r.sendReplies(ctx, message.Chat.ID, r.facade.HandleUnwatch(ctx, message.From.ID, watchID))
}

// handleStatsCommand handles /stats.
func (r *RealTelegramBotAdapter) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendReplies(ctx, message.Chat.ID, r.facade.HandleStats(ctx))
}

// handleScanOutCommand handles /scanout [limit]. The limit argument is parsed
// first so a typo fails before the scan is announced; zero means the
// configured maximum.
func (r *RealTelegramBotAdapter) handleScanOutCommand(ctx context.Context, message *tgbotapi.Message) error {
	limit := 0
	if args := strings.Fields(message.CommandArguments()); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return r.sendText(ctx, message.Chat.ID, "error_scan_limit_number")
		}
		limit = n
	}

	// The scan blocks for minutes; acknowledge before starting.
	if err := r.sendText(ctx, message.Chat.ID, "scan_started"); err != nil {
		return err
	}
	return r.sendReplies(ctx, message.Chat.ID, r.facade.HandleScanOut(ctx, message.From.ID, limit))
}
