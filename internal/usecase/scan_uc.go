package usecase

import (
	"context"
	"fmt"
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

// Compile-time check
var _ ScanUseCase = (*scanUC)(nil)

// ScanReport is the outcome of one sitemap-driven availability pass.
type ScanReport struct {
	Run        *model.ScanRun
	OutOfStock []*model.Product
}

// ScanUseCase walks the shop sitemap and reports products without stock.
type ScanUseCase interface {
	ScanOutOfStock(ctx context.Context, adminTgID int64, limit int) (*ScanReport, error)
}

type scanUC struct {
	fetcher  adapter.SiteFetcher
	scans    repository.ScanRunRepository
	products ProductUseCase
	limiter  ratelimit.Limiter
	site     *config.SiteConfig
	limits   *config.LimitsConfig
	scan     *config.ScanConfig
	log      *zerolog.Logger
}

func NewScanUseCase(
	fetcher adapter.SiteFetcher,
	scans repository.ScanRunRepository,
	products ProductUseCase,
	limiter ratelimit.Limiter,
	site *config.SiteConfig,
	limits *config.LimitsConfig,
	scan *config.ScanConfig,
	logger *zerolog.Logger,
) *scanUC {
	return &scanUC{
		fetcher:  fetcher,
		scans:    scans,
		products: products,
		limiter:  limiter,
		site:     site,
		limits:   limits,
		scan:     scan,
		log:      logger,
	}
}

func (s *scanUC) ScanOutOfStock(ctx context.Context, adminTgID int64, limit int) (*ScanReport, error) {
	defer logging.TraceDuration(s.log, "ScanUC.ScanOutOfStock")()

	if limit <= 0 || limit > s.scan.MaxProducts {
		limit = s.scan.MaxProducts
	}

	run, err := model.NewScanRun(adminTgID)
	if err != nil {
		return nil, err
	}
	if err := s.scans.Save(ctx, run); err != nil {
		return nil, err
	}

	urls, err := s.collectProductURLs(ctx, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// An unreachable sitemap ends the scan with zero checks; the run row
		// still records the attempt.
		s.log.Warn().Err(err).Msg("sitemap collection failed")
	}
	s.log.Info().Str("scan_id", run.ID).Int("urls", len(urls)).Int("limit", limit).Msg("scan started")

	var (
		checked    int
		outOfStock []*model.Product
	)
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		product, err := s.products.BackgroundCheck(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.Warn().Err(err).Str("url", u).Msg("scan check failed")
			continue
		}
		checked++
		if product.Availability == model.StatusOutOfStock {
			outOfStock = append(outOfStock, product)
		}
	}

	run.Finish(checked, len(outOfStock))
	if err := s.scans.Save(ctx, run); err != nil {
		s.log.Error().Err(err).Str("scan_id", run.ID).Msg("scan run save failed")
	}
	metrics.IncScanRun()
	s.log.Info().Str("scan_id", run.ID).Int("checked", checked).Int("out_of_stock", len(outOfStock)).Msg("scan finished")

	report := &ScanReport{Run: run, OutOfStock: outOfStock}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// collectProductURLs walks sitemap_index.xml (falling back to sitemap.xml),
// follows child sitemaps and keeps up to limit product page URLs.
func (s *scanUC) collectProductURLs(ctx context.Context, limit int) ([]string, error) {
	base := strings.TrimRight(s.site.BaseURL, "/")
	_, host, err := normalizeProductURL(base)
	if err != nil {
		return nil, err
	}

	var locs []string
	for _, candidate := range []string{base + "/sitemap_index.xml", base + "/sitemap.xml"} {
		entries, err := s.fetchSitemap(ctx, candidate, host)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Debug().Err(err).Str("sitemap", candidate).Msg("sitemap fetch failed")
			continue
		}
		if len(entries) > 0 {
			locs = entries
			break
		}
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("no sitemap entries under %s", base)
	}

	seen := make(map[string]struct{})
	var products []string
	add := func(urls []string) {
		for _, u := range scrape.FilterProductURLs(urls) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			if len(products) < limit {
				products = append(products, u)
			}
		}
	}

	var children []string
	var pages []string
	for _, loc := range locs {
		if scrape.IsSitemapURL(loc) {
			children = append(children, loc)
		} else {
			pages = append(pages, loc)
		}
	}
	add(pages)

	for _, child := range children {
		if len(products) >= limit {
			break
		}
		if ctx.Err() != nil {
			return products, ctx.Err()
		}
		childLocs, err := s.fetchSitemap(ctx, child, host)
		if err != nil {
			s.log.Warn().Err(err).Str("sitemap", child).Msg("child sitemap fetch failed")
			continue
		}
		add(childLocs)
	}
	return products, nil
}

func (s *scanUC) fetchSitemap(ctx context.Context, sitemapURL, host string) ([]string, error) {
	if !limiterAllows(ctx, s.limiter, ratelimit.DomainKey(host), s.limits.DomainPerMinute, time.Minute, s.log) {
		metrics.IncRateLimitTriggered("domain")
		return nil, domain.ErrDomainRateLimited
	}
	if err := politeDelay(ctx, s.site.MinDelay, s.site.MaxDelay); err != nil {
		return nil, err
	}
	res, err := s.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("sitemap %s returned status %d", sitemapURL, res.StatusCode)
	}
	return scrape.ParseSitemapURLs(res.Body), nil
}
