package scrape

import (
	"context"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
	"github.com/last9death/maturmarket/internal/infra/metrics"
)

var _ adapter.SiteFetcher = (*Client)(nil)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// Client fetches shop pages with browser-like headers. The cloudflare bypass
// transport keeps the anti-bot edge from rejecting plain Go clients outright;
// real blocks still surface as 403/429 for the service layer to classify.
type Client struct {
	http *resty.Client
	log  *zerolog.Logger
}

func NewClient(timeout time.Duration, logger *zerolog.Logger) *Client {
	compLog := logger.With().Str("component", "ScrapeClient").Logger()

	client := resty.New()
	if jar, err := cookiejar.New(nil); err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	client.SetTimeout(timeout)
	// The service inspects 4xx/5xx codes itself.
	client.SetRetryCount(0)

	return &Client{http: client, log: &compLog}
}

func (c *Client) Fetch(ctx context.Context, url string) (*adapter.FetchResult, error) {
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(url)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Warn().Err(err).Str("url", url).Dur("elapsed", elapsed).Msg("fetch failed")
		return nil, err
	}

	metrics.ObserveFetchLatency(elapsed)
	c.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode()).
		Int("bytes", len(resp.Body())).
		Dur("elapsed", elapsed).
		Msg("page fetched")

	final := url
	if ru := resp.RawResponse; ru != nil && ru.Request != nil && ru.Request.URL != nil {
		final = ru.Request.URL.String()
	}

	return &adapter.FetchResult{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		FinalURL:   final,
	}, nil
}
