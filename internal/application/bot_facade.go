package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
	"github.com/last9death/maturmarket/internal/infra/i18n"
	"github.com/last9death/maturmarket/internal/usecase"
)

// Callback data prefixes shared between the buttons this facade builds and
// the adapter routing that dispatches them back.
const (
	CallbackCheck   = "check:"
	CallbackWatch   = "watch:"
	CallbackUnwatch = "unwatch:"
)

// Telegram rejects callback payloads over 64 bytes.
const maxCallbackData = 64

// scanChunkLines caps how many report lines go into one scan message.
const scanChunkLines = 20

// Reply is one outgoing message a command produced. The adapter only adds
// the chat id and forwards it.
type Reply struct {
	Text      string
	ParseMode string
	Buttons   [][]adapter.InlineButton
}

// WatchAlert is one formatted watch notification waiting to be sent.
type WatchAlert struct {
	ChatID  int64
	WatchID int64
	Status  model.AvailabilityStatus
	Text    string
}

// BotFacade composes the usecases into bot commands. Every handler returns
// ready-to-send replies: argument errors, domain errors and happy paths all
// come back as localized messages, so the Telegram adapter stays a router.
type BotFacade struct {
	UserUC    usecase.UserUseCase
	ProductUC usecase.ProductUseCase
	WatchUC   usecase.WatchUseCase
	StatsUC   usecase.StatsUseCase
	ScanUC    usecase.ScanUseCase

	tr  *i18n.Translator
	log *zerolog.Logger
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	productUC usecase.ProductUseCase,
	watchUC usecase.WatchUseCase,
	statsUC usecase.StatsUseCase,
	scanUC usecase.ScanUseCase,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		UserUC:    userUC,
		ProductUC: productUC,
		WatchUC:   watchUC,
		StatsUC:   statsUC,
		ScanUC:    scanUC,
		tr:        tr,
		log:       logger,
	}
}

// HandleStart registers the caller and replies with the command overview.
// /help goes through here too.
func (f *BotFacade) HandleStart(ctx context.Context, tgID int64) []Reply {
	if _, err := f.UserUC.RegisterOrFetch(ctx, tgID); err != nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("user registration failed")
		return f.text("error_generic")
	}
	return f.text("welcome_message")
}

// HandleCheck runs a user-initiated product check and replies with the
// product card, or with the error text for whatever went wrong.
func (f *BotFacade) HandleCheck(ctx context.Context, tgID int64, rawURL string) []Reply {
	if _, err := f.UserUC.RegisterOrFetch(ctx, tgID); err != nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("user registration failed")
		return f.text("error_generic")
	}

	product, err := f.ProductUC.Check(ctx, tgID, rawURL)
	if err != nil {
		return f.checkErrorReply(err, tgID, rawURL)
	}
	switch product.Availability {
	case model.StatusNotFound:
		return f.text("error_not_found")
	case model.StatusBlocked:
		return f.text("error_blocked")
	case model.StatusError:
		return f.text("error_request")
	}
	return []Reply{f.productCard(product.Title, product.Price, product.Availability, product.URL)}
}

func (f *BotFacade) checkErrorReply(err error, tgID int64, rawURL string) []Reply {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return f.text("error_bad_url")
	case errors.Is(err, domain.ErrUserRateLimited):
		return f.text("error_blocked")
	default:
		f.log.Warn().Err(err).Int64("tg_id", tgID).Str("url", rawURL).Msg("product check failed")
		return f.text("error_request")
	}
}

// HandleFind searches the catalog and replies with one card per hit.
func (f *BotFacade) HandleFind(ctx context.Context, tgID int64, query string) []Reply {
	if _, err := f.UserUC.RegisterOrFetch(ctx, tgID); err != nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("user registration failed")
		return f.text("error_generic")
	}

	results, err := f.ProductUC.Search(ctx, tgID, query)
	if err != nil {
		// The canned text covers rate limits and site refusals alike.
		f.log.Debug().Err(err).Int64("tg_id", tgID).Str("query", query).Msg("search yielded nothing")
		return f.text("find_empty")
	}
	if len(results) == 0 {
		return f.text("find_empty")
	}
	replies := make([]Reply, 0, len(results))
	for _, r := range results {
		replies = append(replies, f.productCard(r.Title, r.Price, r.Availability, r.URL))
	}
	return replies
}

// HandleWatch subscribes the caller to availability changes of one URL.
func (f *BotFacade) HandleWatch(ctx context.Context, tgID int64, rawURL string) []Reply {
	user, err := f.UserUC.RegisterOrFetch(ctx, tgID)
	if err != nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("user registration failed")
		return f.text("error_generic")
	}

	watch, err := f.WatchUC.Add(ctx, user.ID, rawURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return f.text("error_bad_url")
		}
		f.log.Error().Err(err).Int64("tg_id", tgID).Str("url", rawURL).Msg("watch add failed")
		return f.text("error_generic")
	}
	return []Reply{{
		Text:    f.tr.T("watch_added", watch.ID),
		Buttons: f.unwatchButtons(watch.ID),
	}}
}

// HandleWatchlist replies with one message per active watch, each carrying
// its own unsubscribe button.
func (f *BotFacade) HandleWatchlist(ctx context.Context, tgID int64) []Reply {
	user, err := f.UserUC.RegisterOrFetch(ctx, tgID)
	if err != nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("user registration failed")
		return f.text("error_generic")
	}

	watches, err := f.WatchUC.List(ctx, user.ID)
	if err != nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("watch list failed")
		return f.text("error_generic")
	}
	if len(watches) == 0 {
		return f.text("watchlist_empty")
	}
	replies := make([]Reply, 0, len(watches))
	for _, w := range watches {
		replies = append(replies, Reply{
			Text:    f.tr.T("watchlist_item", w.ID, w.ProductURL),
			Buttons: f.unwatchButtons(w.ID),
		})
	}
	return replies
}

// HandleUnwatch deactivates the caller's watch with the given id.
func (f *BotFacade) HandleUnwatch(ctx context.Context, tgID, watchID int64) []Reply {
	user, err := f.UserUC.RegisterOrFetch(ctx, tgID)
	if err != nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("user registration failed")
		return f.text("error_generic")
	}

	if err := f.WatchUC.Remove(ctx, user.ID, watchID); err != nil {
		if errors.Is(err, domain.ErrWatchNotFound) {
			return f.text("watch_not_found")
		}
		f.log.Error().Err(err).Int64("tg_id", tgID).Int64("watch_id", watchID).Msg("watch removal failed")
		return f.text("error_generic")
	}
	return f.text("watch_removed")
}

// HandleStats reports store totals plus the last scan run, if any.
func (f *BotFacade) HandleStats(ctx context.Context) []Reply {
	stats, err := f.StatsUC.Totals(ctx)
	if err != nil {
		f.log.Error().Err(err).Msg("stats collection failed")
		return f.text("error_generic")
	}

	text := f.tr.T("stats_report", stats.Users, stats.ActiveWatches, stats.CachedProducts)
	if stats.LastScan != nil {
		text += "\n" + f.tr.T("stats_last_scan",
			stats.LastScan.StartedAt.UTC().Format("2006-01-02 15:04"),
			stats.LastScan.Checked,
			stats.LastScan.OutOfStock,
		)
	}
	return []Reply{{Text: text}}
}

// HandleScanOut walks the sitemap and reports every product currently out of
// stock, in chunks small enough for Telegram. It blocks for the whole scan;
// the adapter acknowledges the command before calling in.
func (f *BotFacade) HandleScanOut(ctx context.Context, tgID int64, limit int) []Reply {
	report, err := f.ScanUC.ScanOutOfStock(ctx, tgID, limit)
	if report == nil {
		f.log.Error().Err(err).Int64("tg_id", tgID).Msg("scan failed")
		return f.text("error_generic")
	}
	if err != nil {
		f.log.Warn().Err(err).Str("scan_id", report.Run.ID).Msg("scan ended early, reporting what it saw")
	}
	if len(report.OutOfStock) == 0 {
		return f.text("scan_empty")
	}

	lines := make([]string, 0, len(report.OutOfStock))
	for _, p := range report.OutOfStock {
		title := p.Title
		if strings.TrimSpace(title) == "" {
			title = f.tr.T("product_untitled")
		}
		lines = append(lines, f.tr.T("scan_item", title, p.URL))
	}

	replies := f.text("scan_header")
	for start := 0; start < len(lines); start += scanChunkLines {
		end := start + scanChunkLines
		if end > len(lines) {
			end = len(lines)
		}
		replies = append(replies, Reply{Text: strings.Join(lines[start:end], "\n")})
	}
	return replies
}

// WatchCycle runs one pass over all active watches and returns the formatted
// notifications. The scheduler worker sends them and confirms each delivery
// through ConfirmAlert.
func (f *BotFacade) WatchCycle(ctx context.Context) ([]WatchAlert, error) {
	pending, err := f.WatchUC.CheckAll(ctx)
	if err != nil {
		return nil, err
	}
	alerts := make([]WatchAlert, 0, len(pending))
	for _, n := range pending {
		alerts = append(alerts, WatchAlert{
			ChatID:  n.ChatID,
			WatchID: n.Watch.ID,
			Status:  n.Product.Availability,
			Text: f.tr.T("notify_update",
				statusEmoji(n.Product.Availability),
				f.statusLabel(n.Product.Availability),
				f.priceText(n.Product.Price),
				n.Product.URL,
			),
		})
	}
	return alerts, nil
}

// ConfirmAlert records that the owner actually received the status.
func (f *BotFacade) ConfirmAlert(ctx context.Context, watchID int64, status model.AvailabilityStatus) error {
	return f.WatchUC.MarkNotified(ctx, watchID, status)
}

func (f *BotFacade) text(key string) []Reply {
	return []Reply{{Text: f.tr.T(key)}}
}

// productCard renders the HTML card shared by /check and /find replies.
func (f *BotFacade) productCard(title string, price *float64, status model.AvailabilityStatus, url string) Reply {
	if strings.TrimSpace(title) == "" {
		title = f.tr.T("product_untitled")
	}
	return Reply{
		Text: f.tr.T("product_card",
			html.EscapeString(title),
			f.priceText(price),
			statusEmoji(status),
			f.statusLabel(status),
			html.EscapeString(url),
		),
		ParseMode: adapter.ParseModeHTML,
		Buttons:   f.productButtons(url),
	}
}

func (f *BotFacade) productButtons(url string) [][]adapter.InlineButton {
	rows := [][]adapter.InlineButton{
		{{Text: f.tr.T("button_open_product"), URL: url}},
	}
	if data := CallbackWatch + url; len(data) <= maxCallbackData {
		rows = append(rows, []adapter.InlineButton{{Text: f.tr.T("button_watch"), Data: data}})
	}
	if data := CallbackCheck + url; len(data) <= maxCallbackData {
		rows = append(rows, []adapter.InlineButton{{Text: f.tr.T("button_recheck"), Data: data}})
	}
	return rows
}

func (f *BotFacade) unwatchButtons(watchID int64) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: f.tr.T("button_unwatch"), Data: fmt.Sprintf("%s%d", CallbackUnwatch, watchID)}},
	}
}

func (f *BotFacade) priceText(price *float64) string {
	if price == nil {
		return f.tr.T("price_unknown")
	}
	return f.tr.T("price_rub", *price)
}

func (f *BotFacade) statusLabel(status model.AvailabilityStatus) string {
	key := "status_unknown"
	switch status {
	case model.StatusInStock:
		key = "status_in_stock"
	case model.StatusOutOfStock:
		key = "status_out_of_stock"
	case model.StatusPreorder:
		key = "status_preorder"
	case model.StatusNotFound:
		key = "status_not_found"
	case model.StatusBlocked:
		key = "status_blocked"
	case model.StatusError:
		key = "status_error"
	}
	return f.tr.T(key)
}

func statusEmoji(status model.AvailabilityStatus) string {
	switch status {
	case model.StatusInStock:
		return "✅"
	case model.StatusOutOfStock:
		return "❌"
	case model.StatusPreorder:
		return "🕒"
	default:
		return "❓"
	}
}
