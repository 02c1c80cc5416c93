// Package migros scrapes the Migros online shop. Search results are rendered
// client-side, so pages are driven through a headless browser.
package migros

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"sepet/models"
	"sepet/scraper"
	"sepet/utils"
)

const (
	Module = "shops/migros"
	Class  = "MigrosScraper"

	moneyMarker = "Money ile"
)

// Scraper drives the Migros search page. One instance owns one browser and
// is not reentrant.
type Scraper struct {
	shop        models.ShopDescriptor
	session     *scraper.BrowserSession
	logger      *utils.Logger
	maxPages    int
	pollTimeout time.Duration
}

// New is the plugin constructor.
func New(shop models.ShopDescriptor, opts scraper.Options) (scraper.Scraper, error) {
	if shop.BaseURL == "" {
		return nil, errors.New("migros: base url is required")
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	poll := opts.PollTimeout
	if poll <= 0 {
		poll = 20 * time.Second
	}
	return &Scraper{
		shop:        shop,
		session:     scraper.NewBrowserSession(shop.ID, opts),
		logger:      opts.Logger,
		maxPages:    maxPages,
		pollTimeout: poll,
	}, nil
}

func (s *Scraper) Reentrant() bool { return false }

func (s *Scraper) Close() error { return s.session.Close() }

type card struct {
	Name  string `json:"name"`
	Href  string `json:"href"`
	Price string `json:"price"`
	Image string `json:"image"`
}

const readyJS = `(function() {
	return document.querySelectorAll('sm-product-list-content mat-card').length > 0 ||
		document.querySelector('.empty-result, fe-search-no-result, sm-search-no-result') !== null;
})()`

const cardsJS = `(function() {
	var out = [];
	var cards = document.querySelectorAll('sm-product-list-content mat-card');
	for (var i = 0; i < cards.length; i++) {
		var name = cards[i].querySelector('#product-name');
		var price = cards[i].querySelector('div.price-container');
		var img = cards[i].querySelector('img');
		out.push({
			name: name ? name.textContent.trim() : '',
			href: name ? (name.getAttribute('href') || '') : '',
			price: price ? price.textContent.trim() : '',
			image: img ? (img.getAttribute('src') || '') : ''
		});
	}
	return out;
})()`

const nextPageJS = `(function() {
	var b = document.querySelector('#pagination-button-next');
	if (!b || b.disabled || b.getAttribute('aria-disabled') === 'true') return false;
	b.click();
	return true;
})()`

// Search walks the paginated result list up to the configured page cap.
func (s *Scraper) Search(ctx context.Context, query string) ([]*models.RawProduct, error) {
	searchURL := strings.TrimRight(s.shop.BaseURL, "/") + "/arama?q=" + url.QueryEscape(query)
	s.debug("Searching %s", searchURL)

	var (
		ready bool
		pages [][]card
	)
	err := s.session.Run(ctx,
		chromedp.Navigate(searchURL),
		chromedp.Poll(readyJS, &ready, chromedp.WithPollingTimeout(s.pollTimeout)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for page := 1; page <= s.maxPages; page++ {
				var cards []card
				if err := chromedp.Evaluate(cardsJS, &cards).Do(ctx); err != nil {
					return fmt.Errorf("read page %d: %w", page, err)
				}
				pages = append(pages, cards)
				if len(cards) == 0 || page == s.maxPages {
					return nil
				}

				var clicked bool
				if err := chromedp.Evaluate(nextPageJS, &clicked).Do(ctx); err != nil {
					return fmt.Errorf("paginate from %d: %w", page, err)
				}
				if !clicked {
					return nil
				}
				if err := chromedp.Sleep(2 * time.Second).Do(ctx); err != nil {
					return err
				}
			}
			return nil
		}),
	)
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return nil, models.NewScrapeError(s.shop.ID, models.KindParse,
				fmt.Errorf("result list did not render: %w", err))
		}
		return nil, scraper.Classify(s.shop.ID, err)
	}

	var products []*models.RawProduct
	for _, cards := range pages {
		for _, c := range cards {
			if c.Name == "" {
				continue
			}
			price, list := SplitPrices(c.Price)
			products = append(products, &models.RawProduct{
				Name:          c.Name,
				Price:         price,
				ListPrice:     list,
				URL:           scraper.Resolve(s.shop.BaseURL, c.Href),
				ImageURL:      c.Image,
				ShopProductID: productID(c.Href),
			})
		}
	}
	s.debug("%d products for %q", len(products), query)
	return products, nil
}

// SplitPrices separates the shelf price from the loyalty-card price in text
// like "294,95 TL Money ile 219,95 TL". The card price is what the shopper
// pays, so it becomes the price and the shelf price the list price.
func SplitPrices(text string) (price, listPrice string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "İyi Fiyat", ""))
	before, after, found := strings.Cut(text, moneyMarker)
	if !found {
		return text, ""
	}
	return strings.TrimSpace(after), strings.TrimSpace(before)
}

func productID(href string) string {
	if i := strings.LastIndex(href, "p-"); i >= 0 {
		return href[i+2:]
	}
	return ""
}

func (s *Scraper) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug("[%s] "+format, append([]any{s.shop.ID}, args...)...)
	}
}
