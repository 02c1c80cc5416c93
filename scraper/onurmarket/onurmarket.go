// Package onurmarket scrapes the Onur Market online shop.
package onurmarket

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sepet/models"
	"sepet/scraper"
	"sepet/utils"
)

const (
	Module = "shops/onurmarket"
	Class  = "OnurmarketScraper"
)

type Scraper struct {
	shop    models.ShopDescriptor
	fetcher *scraper.PageFetcher
	logger  *utils.Logger
}

// New is the plugin constructor.
func New(shop models.ShopDescriptor, opts scraper.Options) (scraper.Scraper, error) {
	if shop.BaseURL == "" {
		return nil, errors.New("onurmarket: base url is required")
	}
	fetcher, err := scraper.NewPageFetcher(shop.ID, opts)
	if err != nil {
		return nil, err
	}
	return &Scraper{shop: shop, fetcher: fetcher, logger: opts.Logger}, nil
}

func (s *Scraper) Reentrant() bool { return true }

// Search reads the single search result page.
func (s *Scraper) Search(ctx context.Context, query string) ([]*models.RawProduct, error) {
	searchURL := strings.TrimRight(s.shop.BaseURL, "/") + "/Arama?1&kelime=" + url.QueryEscape(query)

	doc, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	items := doc.Find("div.productItem")
	if items.Length() == 0 && doc.Find("#ProductPageProductList, .productList, .emptyList, .noResult").Length() == 0 {
		return nil, models.NewScrapeError(s.shop.ID, models.KindParse,
			errors.New("search page has no product list"))
	}

	products := make([]*models.RawProduct, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		if p := s.parseItem(item); p != nil {
			products = append(products, p)
		}
	})

	if s.logger != nil {
		s.logger.Debug("[%s] %d products for %q", s.shop.ID, len(products), query)
	}
	return products, nil
}

func (s *Scraper) parseItem(item *goquery.Selection) *models.RawProduct {
	name := strings.TrimSpace(item.Find(".productName").First().Text())
	if name == "" {
		return nil
	}

	link := item.Find("a.detailUrl").First()
	href, _ := link.Attr("href")
	id, _ := link.Attr("data-id")

	price, list := Prices(item)
	img, ok := item.Find("img").First().Attr("data-original")
	if !ok {
		img, _ = item.Find("img").First().Attr("src")
	}

	return &models.RawProduct{
		Name:          name,
		Price:         price,
		ListPrice:     list,
		URL:           scraper.Resolve(s.shop.BaseURL, href),
		ImageURL:      scraper.Resolve(s.shop.BaseURL, img),
		ShopProductID: strings.TrimSpace(id),
	}
}

// Prices returns the selling price and, when discounted, the regular price.
// The discount span is always rendered; it holds the regular price when no
// separate regular span is filled in.
func Prices(item *goquery.Selection) (price, listPrice string) {
	block := item.Find(".productPrice").First()
	discount := strings.TrimSpace(block.Find("span.discountPriceSpan").First().Text())
	regular := strings.TrimSpace(block.Find("span.regularPriceSpan").First().Text())

	switch {
	case discount == "" && regular == "":
		return strings.TrimSpace(block.Text()), ""
	case discount == "":
		return regular, ""
	case regular == "" || regular == discount:
		return discount, ""
	default:
		return discount, regular
	}
}
