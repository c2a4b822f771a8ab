// File: internal/domain/ports/adapter/scraper.go
package adapter

import "context"

// FetchResult is a raw page response. Body is kept as bytes so parsers decide
// on decoding; FinalURL reflects redirects.
type FetchResult struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

// SiteFetcher performs polite HTTP GETs against the monitored shop.
type SiteFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}
