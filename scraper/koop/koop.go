// Package koop scrapes the Koop online shop. Result pages are server-rendered
// and paged with a page query parameter.
package koop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"sepet/models"
	"sepet/scraper"
	"sepet/utils"
)

const (
	Module = "shops/koop"
	Class  = "KoopScraper"
)

type Scraper struct {
	shop     models.ShopDescriptor
	fetcher  *scraper.PageFetcher
	logger   *utils.Logger
	maxPages int
}

// New is the plugin constructor.
func New(shop models.ShopDescriptor, opts scraper.Options) (scraper.Scraper, error) {
	if shop.BaseURL == "" {
		return nil, errors.New("koop: base url is required")
	}
	fetcher, err := scraper.NewPageFetcher(shop.ID, opts)
	if err != nil {
		return nil, err
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Scraper{shop: shop, fetcher: fetcher, logger: opts.Logger, maxPages: maxPages}, nil
}

// Reentrant reports true; every Search owns its own request state.
func (s *Scraper) Reentrant() bool { return true }

func (s *Scraper) pageURL(query string, page int) string {
	return fmt.Sprintf("%s/arama?ara=%s&page=%d", strings.TrimRight(s.shop.BaseURL, "/"), url.QueryEscape(query), page)
}

// Search reads result pages until the shop reports no products, a page adds
// nothing new, or the page cap is reached.
func (s *Scraper) Search(ctx context.Context, query string) ([]*models.RawProduct, error) {
	seen := utils.NewURLSet()
	var products []*models.RawProduct

	for page := 1; page <= s.maxPages; page++ {
		doc, err := s.fetcher.Fetch(ctx, s.pageURL(query, page))
		if err != nil {
			return nil, err
		}

		if doc.Find("div.ss_urun_yok").Length() > 0 {
			break
		}
		items := doc.Find("div.ss_urun")
		if items.Length() == 0 {
			if page == 1 && doc.Find("div.ss_urun_area").Length() == 0 {
				return nil, models.NewScrapeError(s.shop.ID, models.KindParse,
					errors.New("search page has neither results nor an empty-result marker"))
			}
			break
		}

		added := 0
		items.Each(func(_ int, item *goquery.Selection) {
			p := s.parseItem(item)
			if p == nil || !seen.Add(p.URL) {
				return
			}
			products = append(products, p)
			added++
		})
		s.debug("page %d: %d new products", page, added)
		if added == 0 {
			break
		}
	}
	return products, nil
}

func (s *Scraper) parseItem(item *goquery.Selection) *models.RawProduct {
	href, ok := item.Find("a").First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return nil
	}

	// Listing titles are truncated with "..."; the slug carries the full name.
	slug := path.Base(strings.TrimRight(href, "/"))
	name := NameFromSlug(slug)
	if name == "" {
		name = strings.TrimSpace(item.Find("div.ss_urun3").Text())
	}

	img, _ := item.Find("img").First().Attr("src")
	return &models.RawProduct{
		Name:          name,
		Price:         strings.TrimSpace(item.Find("div.ss_urun52").Text()),
		URL:           scraper.Resolve(s.shop.BaseURL, href),
		ImageURL:      scraper.Resolve(s.shop.BaseURL, img),
		ShopProductID: slug,
	}
}

// NameFromSlug rebuilds a display name from a URL slug such as
// "PINAR-TAM-YAGLI-SUT_1-LT", title-casing each word with Turkish rules.
func NameFromSlug(slug string) string {
	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}
	slug = strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	words := strings.Fields(slug)
	for i, w := range words {
		words[i] = turkishTitle(w)
	}
	return strings.Join(words, " ")
}

func turkishTitle(word string) string {
	lower := []rune(strings.ToLowerSpecial(unicode.TurkishCase, word))
	if len(lower) == 0 {
		return ""
	}
	lower[0] = unicode.TurkishCase.ToUpper(lower[0])
	return string(lower)
}

func (s *Scraper) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug("[%s] "+format, append([]any{s.shop.ID}, args...)...)
	}
}
