//go:build !integration

package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSitemapURLsHandlesIndexAndURLSet(t *testing.T) {
	index := `<?xml version="1.0" encoding="UTF-8"?>
	<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	  <sitemap><loc>https://example.com/sitemap-products.xml</loc></sitemap>
	  <sitemap><loc>https://example.com/sitemap-pages.xml</loc></sitemap>
	</sitemapindex>`

	urls := ParseSitemapURLs([]byte(index))
	require.Equal(t, []string{
		"https://example.com/sitemap-products.xml",
		"https://example.com/sitemap-pages.xml",
	}, urls)

	urlset := `<?xml version="1.0" encoding="UTF-8"?>
	<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	  <url><loc> https://example.com/product/1 </loc></url>
	  <url><loc>https://example.com/about</loc></url>
	</urlset>`

	urls = ParseSitemapURLs([]byte(urlset))
	require.Equal(t, []string{
		"https://example.com/product/1",
		"https://example.com/about",
	}, urls)
}

func TestParseSitemapURLsMalformed(t *testing.T) {
	require.Empty(t, ParseSitemapURLs([]byte("<<not-xml")))
	require.Empty(t, ParseSitemapURLs(nil))
}

func TestFilterProductURLs(t *testing.T) {
	in := []string{
		"https://maturmarket.ru/product/jacket",
		"https://maturmarket.ru/catalog/coats/",
		"https://maturmarket.ru/shop/item-5",
		"https://maturmarket.ru/about",
		"https://maturmarket.ru/blog/news",
	}
	out := FilterProductURLs(in)
	require.Equal(t, []string{
		"https://maturmarket.ru/product/jacket",
		"https://maturmarket.ru/catalog/coats/",
		"https://maturmarket.ru/shop/item-5",
	}, out)
}

func TestIsSitemapURL(t *testing.T) {
	require.True(t, IsSitemapURL("https://maturmarket.ru/sitemap-products.xml"))
	require.True(t, IsSitemapURL("https://maturmarket.ru/SITEMAP.XML"))
	require.False(t, IsSitemapURL("https://maturmarket.ru/product/1"))
	require.False(t, IsSitemapURL("https://maturmarket.ru/feed.rss"))
}

func TestBuildSearchURL(t *testing.T) {
	got := BuildSearchURL("https://maturmarket.ru", "red jacket")
	require.Equal(t, "https://maturmarket.ru/search/?q=red+jacket", got)

	got = BuildSearchURL("https://maturmarket.ru/", "пальто")
	require.Equal(t, "https://maturmarket.ru/search/?q=%D0%BF%D0%B0%D0%BB%D1%8C%D1%82%D0%BE", got)
}
