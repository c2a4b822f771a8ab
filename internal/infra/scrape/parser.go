package scrape

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/last9death/maturmarket/internal/domain/model"
)

// Keyword lists are matched against the lowercased page text. Order inside a
// list does not matter; the ladder in classify does.
var (
	inStockKeywords = []string{
		"в наличии",
		"доступно",
		"добавить в корзину",
		"купить",
	}
	outOfStockKeywords = []string{
		"нет в наличии",
		"распродано",
		"ожидается поступление",
	}
	preorderKeywords = []string{
		"предзаказ",
		"ожидается",
	}
)

// Selector chains cover the shop's current WooCommerce markup plus the older
// theme variants still served on some category pages.
var (
	titleSelectors = []string{
		"h1",
		".product-title",
		".product_title",
	}
	priceSelectors = []string{
		".price .amount",
		".price .woocommerce-Price-amount",
		".product-price",
		".price",
	}
	oldPriceSelectors = []string{
		".price del .amount",
		".price del .woocommerce-Price-amount",
		".old-price",
	}
	imageSelectors = []string{
		".product-gallery img",
		".woocommerce-product-gallery__image img",
		".product-image img",
	}
	buyButtonSelectors = []string{
		"button.add-to-cart",
		"button.single_add_to_cart_button",
		"button.buy",
		"button[data-product_id]",
	}

	searchItemSelectors = []string{
		".products .product",
		".product-list .product-item",
		".catalog-items .item",
	}
	searchTitleSelectors = []string{
		".woocommerce-loop-product__title",
		".product-title",
		"h2",
		"h3",
	}
	searchPriceSelectors = []string{
		".price .amount",
		".price",
	}
)

// ParseProduct classifies a product page. It is total: any markup yields a
// product, with UNKNOWN as the floor when no signal fires.
func ParseProduct(body []byte, pageURL string) (*model.Product, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	product, err := model.NewProduct(pageURL)
	if err != nil {
		return nil, err
	}
	signals := &product.Signals

	title, used := textFromSelectors(doc.Selection, titleSelectors)
	signals.SelectorsUsed = append(signals.SelectorsUsed, used...)
	product.Title = title

	priceText, used := textFromSelectors(doc.Selection, priceSelectors)
	signals.SelectorsUsed = append(signals.SelectorsUsed, used...)
	product.Price = ExtractPrice(priceText)

	oldPriceText, used := textFromSelectors(doc.Selection, oldPriceSelectors)
	signals.SelectorsUsed = append(signals.SelectorsUsed, used...)
	product.OldPrice = ExtractPrice(oldPriceText)

	for _, selector := range imageSelectors {
		node := doc.Find(selector).First()
		if src, ok := node.Attr("src"); ok && src != "" {
			product.ImageURL = resolveURL(pageURL, src)
			signals.SelectorsUsed = append(signals.SelectorsUsed, selector)
			break
		}
	}

	bodyText := normalizedText(doc.Selection)
	signals.InStockHits = keywordHits(bodyText, inStockKeywords)
	signals.OutOfStockHits = keywordHits(bodyText, outOfStockKeywords)
	signals.PreorderHits = keywordHits(bodyText, preorderKeywords)

	for _, selector := range buyButtonSelectors {
		button := doc.Find(selector).First()
		if button.Length() == 0 {
			continue
		}
		signals.BuyButtonFound = true
		signals.SelectorsUsed = append(signals.SelectorsUsed, selector)
		if _, disabled := button.Attr("disabled"); disabled || button.HasClass("disabled") {
			signals.BuyButtonDisabled = true
		}
		break
	}

	product.Availability = classify(signals)
	return product, nil
}

// classify applies the availability ladder: explicit out-of-stock wording
// beats everything, then preorder, then in-stock wording, then button state.
func classify(s *model.ParseSignals) model.AvailabilityStatus {
	switch {
	case len(s.OutOfStockHits) > 0:
		return model.StatusOutOfStock
	case len(s.PreorderHits) > 0:
		return model.StatusPreorder
	case len(s.InStockHits) > 0:
		return model.StatusInStock
	case s.BuyButtonFound && !s.BuyButtonDisabled:
		return model.StatusInStock
	case s.BuyButtonFound && s.BuyButtonDisabled:
		return model.StatusOutOfStock
	}
	return model.StatusUnknown
}

// ParseSearchResults extracts up to limit product cards from a search page.
func ParseSearchResults(body []byte, baseURL string, limit int) ([]model.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var items *goquery.Selection
	for _, selector := range searchItemSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			items = found
			break
		}
	}
	if items == nil {
		return nil, nil
	}

	var results []model.SearchResult
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		link := item.Find("a").First()
		href, _ := link.Attr("href")
		itemURL := resolveURL(baseURL, href)
		if itemURL == "" {
			itemURL = baseURL
		}

		title, _ := textFromSelectors(item, searchTitleSelectors)
		if title == "" && link.Length() > 0 {
			title = normalizedText(link)
		}

		priceText, _ := textFromSelectors(item, searchPriceSelectors)

		imageURL := ""
		if src, ok := item.Find("img").First().Attr("src"); ok && src != "" {
			imageURL = resolveURL(baseURL, src)
		}

		availability := model.StatusUnknown
		bodyText := normalizedText(item)
		if len(keywordHits(bodyText, outOfStockKeywords)) > 0 {
			availability = model.StatusOutOfStock
		} else if len(keywordHits(bodyText, inStockKeywords)) > 0 {
			availability = model.StatusInStock
		}

		results = append(results, model.SearchResult{
			URL:          itemURL,
			Title:        title,
			Price:        ExtractPrice(priceText),
			Availability: availability,
			ImageURL:     imageURL,
		})
		return len(results) < limit
	})

	return results, nil
}

// textFromSelectors returns the first selector's first match with non-empty
// text, plus the selector that produced it.
func textFromSelectors(root *goquery.Selection, selectors []string) (string, []string) {
	for _, selector := range selectors {
		node := root.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if text := normalizedText(node); text != "" {
			return text, []string{selector}
		}
	}
	return "", nil
}

// normalizedText joins the selection's text nodes with single spaces, the way
// browsers collapse whitespace. Keyword matching relies on this: wording
// split across inline tags must still read as one phrase.
func normalizedText(s *goquery.Selection) string {
	var parts []string
	for _, node := range s.Nodes {
		collectText(node, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// ExtractPrice pulls a float out of shop price text such as
// "12 990,00 ₽" or "1 299 руб.". Unparseable input yields nil.
func ExtractPrice(text string) *float64 {
	if text == "" {
		return nil
	}
	cleaned := strings.NewReplacer(
		" ", " ",
		"₽", "",
		"руб.", "",
		"руб", "",
	).Replace(text)

	var digits strings.Builder
	for _, ch := range cleaned {
		if unicode.IsDigit(ch) || ch == ',' || ch == '.' {
			digits.WriteRune(ch)
		}
	}
	if digits.Len() == 0 {
		return nil
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(digits.String(), ",", "."), 64)
	if err != nil {
		return nil
	}
	return &value
}

func keywordHits(text string, keywords []string) []string {
	var hits []string
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			hits = append(hits, keyword)
		}
	}
	return hits
}

func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	resolved, err := baseURL.Parse(href)
	if err != nil {
		return href
	}
	return resolved.String()
}
