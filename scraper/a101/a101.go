// Package a101 scrapes the A101 online shop, which loads results by
// infinite scroll.
package a101

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/shopspring/decimal"

	"sepet/models"
	"sepet/scraper"
	"sepet/utils"
)

const (
	Module = "shops/a101"
	Class  = "A101Scraper"
)

var liraRegexp = regexp.MustCompile(`₺\s*([\d.,]+)`)

type Scraper struct {
	shop        models.ShopDescriptor
	session     *scraper.BrowserSession
	logger      *utils.Logger
	maxScrolls  int
	pollTimeout time.Duration
}

// New is the plugin constructor.
func New(shop models.ShopDescriptor, opts scraper.Options) (scraper.Scraper, error) {
	if shop.BaseURL == "" {
		return nil, errors.New("a101: base url is required")
	}
	scrolls := opts.MaxPages
	if scrolls <= 0 {
		scrolls = 1
	}
	poll := opts.PollTimeout
	if poll <= 0 {
		poll = 10 * time.Second
	}
	return &Scraper{
		shop:        shop,
		session:     scraper.NewBrowserSession(shop.ID, opts),
		logger:      opts.Logger,
		maxScrolls:  scrolls,
		pollTimeout: poll,
	}, nil
}

func (s *Scraper) Reentrant() bool { return false }

func (s *Scraper) Close() error { return s.session.Close() }

type article struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Price string `json:"price"`
	Image string `json:"image"`
}

const readyJS = `(function() {
	return document.querySelectorAll('article').length > 0 ||
		document.body.innerText.indexOf('sonuç bulunamadı') !== -1;
})()`

const countJS = `document.querySelectorAll('article').length`

const scrollJS = `window.scrollTo(0, document.body.scrollHeight - 1000)`

const articlesJS = `(function() {
	var out = [];
	var items = document.querySelectorAll('article');
	for (var i = 0; i < items.length; i++) {
		var a = items[i].querySelector('a');
		var img = items[i].querySelector('img');
		var section = items[i].querySelector('section');
		out.push({
			title: a ? (a.getAttribute('title') || a.textContent.trim()) : '',
			href: a ? (a.getAttribute('href') || '') : '',
			price: section ? section.textContent : items[i].textContent,
			image: img ? (img.getAttribute('src') || '') : ''
		});
	}
	return out;
})()`

// Search scrolls until the article count stops growing or the scroll cap is
// hit, then reads every article on the page.
func (s *Scraper) Search(ctx context.Context, query string) ([]*models.RawProduct, error) {
	searchURL := fmt.Sprintf("%s/arama?k=%s&kurumsal=1", strings.TrimRight(s.shop.BaseURL, "/"), url.QueryEscape(query))
	s.debug("Searching %s", searchURL)

	var (
		ready    bool
		articles []article
	)
	err := s.session.Run(ctx,
		chromedp.Navigate(searchURL),
		chromedp.Poll(readyJS, &ready, chromedp.WithPollingTimeout(s.pollTimeout)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			last := -1
			for i := 0; i < s.maxScrolls; i++ {
				var count int
				if err := chromedp.Evaluate(countJS, &count).Do(ctx); err != nil {
					return err
				}
				if count == last {
					break
				}
				last = count
				if err := chromedp.Evaluate(scrollJS, nil).Do(ctx); err != nil {
					return err
				}
				if err := chromedp.Sleep(2 * time.Second).Do(ctx); err != nil {
					return err
				}
			}
			return chromedp.Evaluate(articlesJS, &articles).Do(ctx)
		}),
	)
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return nil, models.NewScrapeError(s.shop.ID, models.KindParse,
				fmt.Errorf("result list did not render: %w", err))
		}
		return nil, scraper.Classify(s.shop.ID, err)
	}

	products := make([]*models.RawProduct, 0, len(articles))
	for _, a := range articles {
		link := scraper.Resolve(s.shop.BaseURL, a.Href)
		// Sponsored tiles link off-site.
		if a.Title == "" || !strings.HasPrefix(link, strings.TrimRight(s.shop.BaseURL, "/")) {
			continue
		}
		price, list := SplitPrices(a.Price)
		products = append(products, &models.RawProduct{
			Name:          a.Title,
			Price:         price,
			ListPrice:     list,
			URL:           link,
			ImageURL:      a.Image,
			ShopProductID: productID(a.Href),
		})
	}
	s.debug("%d products for %q", len(products), query)
	return products, nil
}

// SplitPrices picks the lowest lira amount in text as the selling price and
// the highest as the list price, when they differ.
func SplitPrices(text string) (price, listPrice string) {
	matches := liraRegexp.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(text), ""
	}

	var low, high string
	var lowVal, highVal decimal.Decimal
	for _, m := range matches {
		v, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(m[1], ".", ""), ",", "."))
		if err != nil {
			continue
		}
		if low == "" || v.LessThan(lowVal) {
			low, lowVal = m[1], v
		}
		if high == "" || v.GreaterThan(highVal) {
			high, highVal = m[1], v
		}
	}
	if low == "" {
		return strings.TrimSpace(text), ""
	}
	if lowVal.Equal(highVal) {
		return low, ""
	}
	return low, high
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
