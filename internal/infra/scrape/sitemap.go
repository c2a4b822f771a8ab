package scrape

import (
	"bytes"
	"encoding/xml"
	"io"
	"net/url"
	"strings"
)

// ParseSitemapURLs collects every <loc> value from a sitemap document. Both
// <sitemapindex> and <urlset> layouts carry their entries in loc elements,
// so one pass serves both. Malformed XML yields an empty list.
func ParseSitemapURLs(body []byte) []string {
	var urls []string
	decoder := xml.NewDecoder(bytes.NewReader(body))

	inLoc := false
	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "loc" {
				inLoc = true
				text.Reset()
			}
		case xml.CharData:
			if inLoc {
				text.Write(t)
			}
		case xml.EndElement:
			if inLoc && t.Name.Local == "loc" {
				inLoc = false
				if loc := strings.TrimSpace(text.String()); loc != "" {
					urls = append(urls, loc)
				}
			}
		}
	}
	return urls
}

// productPathMarkers identify catalog URLs worth checking during a scan.
var productPathMarkers = []string{"/product/", "/catalog/", "/shop/"}

// FilterProductURLs keeps sitemap entries that look like product pages.
func FilterProductURLs(urls []string) []string {
	var filtered []string
	for _, u := range urls {
		for _, marker := range productPathMarkers {
			if strings.Contains(u, marker) {
				filtered = append(filtered, u)
				break
			}
		}
	}
	return filtered
}

// IsSitemapURL reports whether a sitemap index entry points at another
// sitemap rather than a content page.
func IsSitemapURL(u string) bool {
	return strings.HasSuffix(strings.ToLower(u), ".xml")
}

// BuildSearchURL composes the shop's search endpoint for a user query.
func BuildSearchURL(baseURL, query string) string {
	values := url.Values{"q": {query}}
	return strings.TrimRight(baseURL, "/") + "/search/?" + values.Encode()
}
