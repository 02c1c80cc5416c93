package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"sepet/models"
)

const defaultRequestTimeout = 30 * time.Second

// PageFetcher downloads shop pages and parses them into goquery documents.
// Requests are paced by a per-fetcher limiter and are safe for concurrent use.
type PageFetcher struct {
	shop      string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewPageFetcher builds a fetcher for one shop from the shared options.
func NewPageFetcher(shop string, opts Options) (*PageFetcher, error) {
	client := opts.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.ProxyURL != "" {
			proxy, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("parse proxy url: %w", err)
			}
			transport.Proxy = http.ProxyURL(proxy)
		}
		client = &http.Client{Transport: transport, Timeout: defaultRequestTimeout}
	}

	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}

	return &PageFetcher{
		shop:      shop,
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: opts.UserAgent,
	}, nil
}

// Fetch GETs pageURL. Every failure is a *models.ScrapeError.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Classify(f.shop, ctxErr)
		}
		return nil, Classify(f.shop, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, models.NewScrapeError(f.shop, models.KindUnknown, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, Classify(f.shop, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, Classify(f.shop, &StatusError{URL: pageURL, Status: resp.StatusCode})
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Classify(f.shop, ctxErr)
		}
		return nil, models.NewScrapeError(f.shop, models.KindParse, err)
	}
	return doc, nil
}

// Resolve makes href absolute against base. Unparsable hrefs come back as-is.
func Resolve(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
