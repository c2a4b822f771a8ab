package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/config"
	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
	"github.com/last9death/maturmarket/internal/domain/ports/repository"
	"github.com/last9death/maturmarket/internal/infra/logging"
	"github.com/last9death/maturmarket/internal/infra/metrics"
	"github.com/last9death/maturmarket/internal/infra/ratelimit"
	"github.com/last9death/maturmarket/internal/infra/scrape"
)

// searchResultLimit caps how many catalog hits one /find returns.
const searchResultLimit = 10

// Compile-time check
var _ ProductUseCase = (*productUC)(nil)

// ProductUseCase checks live availability of shop products.
type ProductUseCase interface {
	// Check runs the full pipeline for a user-issued request: per-user and
	// per-domain rate limits, cache, polite delay, fetch, parse.
	Check(ctx context.Context, userTgID int64, rawURL string) (*model.Product, error)
	// BackgroundCheck is Check without the per-user limit. Sitemap scans run
	// on it.
	BackgroundCheck(ctx context.Context, rawURL string) (*model.Product, error)
	// Search fetches the catalog search page for the query. Both limits
	// apply, same as Check.
	Search(ctx context.Context, userTgID int64, query string) ([]model.SearchResult, error)
}

type productUC struct {
	fetcher adapter.SiteFetcher
	cache   repository.ProductCacheRepository
	limiter ratelimit.Limiter
	site    *config.SiteConfig
	limits  *config.LimitsConfig
	log     *zerolog.Logger
}

func NewProductUseCase(
	fetcher adapter.SiteFetcher,
	cache repository.ProductCacheRepository,
	limiter ratelimit.Limiter,
	site *config.SiteConfig,
	limits *config.LimitsConfig,
	logger *zerolog.Logger,
) *productUC {
	return &productUC{
		fetcher: fetcher,
		cache:   cache,
		limiter: limiter,
		site:    site,
		limits:  limits,
		log:     logger,
	}
}

func (p *productUC) Check(ctx context.Context, userTgID int64, rawURL string) (*model.Product, error) {
	defer logging.TraceDuration(p.log, "ProductUC.Check")()

	if !limiterAllows(ctx, p.limiter, ratelimit.UserKey(userTgID), p.limits.UserPerHour, time.Hour, p.log) {
		metrics.IncRateLimitTriggered("user")
		return nil, domain.ErrUserRateLimited
	}
	return p.check(ctx, rawURL)
}

func (p *productUC) BackgroundCheck(ctx context.Context, rawURL string) (*model.Product, error) {
	defer logging.TraceDuration(p.log, "ProductUC.BackgroundCheck")()
	return p.check(ctx, rawURL)
}

func (p *productUC) check(ctx context.Context, rawURL string) (*model.Product, error) {
	urlStr, host, err := normalizeProductURL(rawURL)
	if err != nil {
		return nil, err
	}

	if cached, err := p.cache.Find(ctx, urlStr); err == nil {
		if time.Since(cached.CheckedAt) < p.site.CacheTTL {
			metrics.IncCacheRequest("product", "hit")
			return cached, nil
		}
		metrics.IncCacheRequest("product", "stale")
	} else if err == domain.ErrNotFound {
		metrics.IncCacheRequest("product", "miss")
	} else {
		p.log.Warn().Err(err).Str("url", urlStr).Msg("product cache lookup failed")
	}

	if !limiterAllows(ctx, p.limiter, ratelimit.DomainKey(host), p.limits.DomainPerMinute, time.Minute, p.log) {
		metrics.IncRateLimitTriggered("domain")
		metrics.IncProductCheck(string(model.StatusBlocked))
		return p.statusProduct(urlStr, model.StatusBlocked), nil
	}

	if err := politeDelay(ctx, p.site.MinDelay, p.site.MaxDelay); err != nil {
		return nil, err
	}

	product, err := p.fetchAndClassify(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	metrics.IncProductCheck(string(product.Availability))
	// Only parsed pages enter the cache. A 404 or a block is transient and
	// must not shadow real product state for a TTL window.
	if parsedStatus(product.Availability) {
		if err := p.cache.Upsert(ctx, product); err != nil {
			p.log.Warn().Err(err).Str("url", urlStr).Msg("product cache upsert failed")
		}
	}
	return product, nil
}

func (p *productUC) fetchAndClassify(ctx context.Context, urlStr string) (*model.Product, error) {
	res, err := p.fetcher.Fetch(ctx, urlStr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn().Err(err).Str("url", urlStr).Msg("product page fetch failed")
		return p.statusProduct(urlStr, model.StatusError), nil
	}

	switch {
	case res.StatusCode == 404:
		return p.statusProduct(urlStr, model.StatusNotFound), nil
	case res.StatusCode == 403 || res.StatusCode == 429:
		p.log.Warn().Int("status", res.StatusCode).Str("url", urlStr).Msg("shop blocked the request")
		return p.statusProduct(urlStr, model.StatusBlocked), nil
	case res.StatusCode >= 200 && res.StatusCode < 300:
		pageURL := res.FinalURL
		if pageURL == "" {
			pageURL = urlStr
		}
		product, err := scrape.ParseProduct(res.Body, pageURL)
		if err != nil {
			p.log.Warn().Err(err).Str("url", urlStr).Msg("product page parse failed")
			return p.statusProduct(urlStr, model.StatusError), nil
		}
		// Identity stays the requested URL so cache keys survive redirects.
		product.URL = urlStr
		product.CheckedAt = time.Now()
		return product, nil
	default:
		p.log.Warn().Int("status", res.StatusCode).Str("url", urlStr).Msg("unexpected shop response")
		return p.statusProduct(urlStr, model.StatusError), nil
	}
}

func (p *productUC) Search(ctx context.Context, userTgID int64, query string) ([]model.SearchResult, error) {
	defer logging.TraceDuration(p.log, "ProductUC.Search")()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidArgument
	}

	if !limiterAllows(ctx, p.limiter, ratelimit.UserKey(userTgID), p.limits.UserPerHour, time.Hour, p.log) {
		metrics.IncRateLimitTriggered("user")
		return nil, domain.ErrUserRateLimited
	}

	searchURL := scrape.BuildSearchURL(p.site.BaseURL, query)
	_, host, err := normalizeProductURL(searchURL)
	if err != nil {
		return nil, err
	}
	if !limiterAllows(ctx, p.limiter, ratelimit.DomainKey(host), p.limits.DomainPerMinute, time.Minute, p.log) {
		metrics.IncRateLimitTriggered("domain")
		return nil, domain.ErrDomainRateLimited
	}
	if err := politeDelay(ctx, p.site.MinDelay, p.site.MaxDelay); err != nil {
		return nil, err
	}

	res, err := p.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("search fetch: %w", err)
	}
	if res.StatusCode == 403 || res.StatusCode == 429 {
		return nil, domain.ErrSiteBlocked
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("search returned status %d", res.StatusCode)
	}
	return scrape.ParseSearchResults(res.Body, p.site.BaseURL, searchResultLimit)
}

func (p *productUC) statusProduct(urlStr string, status model.AvailabilityStatus) *model.Product {
	return &model.Product{
		URL:          urlStr,
		Currency:     "RUB",
		Availability: status,
		CheckedAt:    time.Now(),
	}
}

// parsedStatus reports whether the status came out of actual page markup
// rather than a transport failure or refusal.
func parsedStatus(s model.AvailabilityStatus) bool {
	switch s {
	case model.StatusInStock, model.StatusOutOfStock, model.StatusPreorder, model.StatusUnknown:
		return true
	}
	return false
}

// normalizeProductURL validates the target and extracts the host used for
// per-domain throttling.
func normalizeProductURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", domain.ErrInvalidArgument
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", domain.ErrInvalidArgument
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", domain.ErrInvalidArgument
	}
	return u.String(), u.Host, nil
}
