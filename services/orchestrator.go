package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sepet/models"
	"sepet/scraper"
	"sepet/utils"
)

const dateLayout = "2006-01-02"

// ScraperSource hands out the scraper for a shop id.
type ScraperSource interface {
	Get(ctx context.Context, shopID string) (scraper.Scraper, error)
}

// OrchestratorOptions bounds one search.
type OrchestratorOptions struct {
	MaxConcurrency int
	RateLimitMs    int
	ShopTimeout    time.Duration
	SearchTimeout  time.Duration
}

// Orchestrator validates search requests, fans them out to the selected
// shops, and merges whatever comes back.
type Orchestrator struct {
	registry   *ShopRegistry
	scrapers   ScraperSource
	aggregator *Aggregator
	opts       OrchestratorOptions
	logger     *utils.Logger
	newID      func() string
}

func NewOrchestrator(registry *ShopRegistry, scrapers ScraperSource, aggregator *Aggregator, opts OrchestratorOptions, logger *utils.Logger) *Orchestrator {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	return &Orchestrator{
		registry:   registry,
		scrapers:   scrapers,
		aggregator: aggregator,
		opts:       opts,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

type searchPlan struct {
	query   string
	shopIDs []string
	filter  Filter
}

// Search runs req against every selected shop. A rejected request returns a
// *models.ValidationError and no scraper is touched. Otherwise the result
// holds one outcome per distinct shop, in request order, and the merged
// products of the shops that succeeded.
func (o *Orchestrator) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	plan, err := o.plan(req)
	if err != nil {
		return nil, err
	}

	id := o.newID()
	start := time.Now()
	o.logger.Info("[orchestrator] %s: searching %q across %d shops", id, plan.query, len(plan.shopIDs))

	searchCtx, cancel := withOptionalTimeout(ctx, o.opts.SearchTimeout)
	defer cancel()

	var (
		pool     = utils.NewWorkerPool(o.opts.MaxConcurrency, o.opts.RateLimitMs)
		outcomes = make([]*models.SearchOutcome, len(plan.shopIDs))
		batches  = make([]*Batch, len(plan.shopIDs))
	)
	for i, shopID := range plan.shopIDs {
		err := pool.Submit(searchCtx, func() {
			outcomes[i], batches[i] = o.runShop(searchCtx, shopID, plan.query)
		})
		if err != nil {
			outcomes[i] = interrupted(searchCtx, shopID, 0, "not started")
		}
	}
	pool.Wait()

	var succeeded []Batch
	for _, b := range batches {
		if b != nil {
			succeeded = append(succeeded, *b)
		}
	}

	result := &models.SearchResult{
		ID:       id,
		Query:    plan.query,
		Products: o.aggregator.Aggregate(succeeded, plan.filter),
		Outcomes: outcomes,
	}
	if result.Products == nil {
		result.Products = []*models.Product{}
	}

	failed := len(result.Failed())
	if failed > 0 {
		o.logger.Warn("[orchestrator] %s: %d/%d shops failed", id, failed, len(outcomes))
	}
	o.logger.Info("[orchestrator] %s: %d products in %s", id, len(result.Products), time.Since(start).Round(time.Millisecond))
	return result, nil
}

// runShop queries one shop. It returns when the scraper answers, the shop
// timeout fires, or the search ends; an abandoned scraper call finishes in
// the background and its result is discarded.
func (o *Orchestrator) runShop(ctx context.Context, shopID, query string) (*models.SearchOutcome, *Batch) {
	start := time.Now()
	if ctx.Err() != nil {
		return interrupted(ctx, shopID, 0, "not started"), nil
	}

	s, err := o.scrapers.Get(ctx, shopID)
	if err != nil {
		var re *models.ResolutionError
		if errors.As(err, &re) || ctx.Err() == nil {
			return failedOutcome(shopID, models.KindConfig, err, time.Since(start)), nil
		}
		return interrupted(ctx, shopID, time.Since(start), "not started"), nil
	}

	shopCtx, cancel := withOptionalTimeout(ctx, o.opts.ShopTimeout)
	defer cancel()

	type reply struct {
		products []*models.RawProduct
		err      error
	}
	replies := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replies <- reply{err: models.NewScrapeError(shopID, models.KindUnknown, fmt.Errorf("panic: %v", r))}
			}
		}()
		products, err := s.Search(shopCtx, query)
		replies <- reply{products: products, err: err}
	}()

	select {
	case r := <-replies:
		elapsed := time.Since(start)
		if r.err != nil {
			if ctx.Err() != nil {
				return interrupted(ctx, shopID, elapsed, r.err.Error()), nil
			}
			se := scraper.Classify(shopID, r.err)
			o.logger.Warn("[orchestrator] %s failed (%s) after %s: %v", shopID, se.Kind, elapsed.Round(time.Millisecond), se.Err)
			return failedOutcome(shopID, se.Kind, se, elapsed), nil
		}
		o.logger.Debug("[orchestrator] %s returned %d records in %s", shopID, len(r.products), elapsed.Round(time.Millisecond))
		return &models.SearchOutcome{
			ShopID:      shopID,
			Succeeded:   true,
			RecordCount: len(r.products),
			Duration:    elapsed,
		}, &Batch{ShopID: shopID, Products: r.products}

	case <-shopCtx.Done():
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return interrupted(ctx, shopID, elapsed, "abandoned"), nil
		}
		o.logger.Warn("[orchestrator] %s timed out after %s", shopID, o.opts.ShopTimeout)
		err := models.NewScrapeError(shopID, models.KindTimeout,
			fmt.Errorf("no response within %s", o.opts.ShopTimeout))
		return failedOutcome(shopID, models.KindTimeout, err, elapsed), nil
	}
}

func (o *Orchestrator) plan(req models.SearchRequest) (*searchPlan, error) {
	query := normaliseText(req.Query)
	if query == "" {
		return nil, &models.ValidationError{Field: "query", Value: req.Query, Reason: "must not be empty"}
	}

	var shopIDs []string
	seen := make(map[string]struct{}, len(req.ShopIDs))
	for _, id := range req.ShopIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if !o.registry.Has(id) {
			return nil, &models.ValidationError{Field: "shop_ids", Value: id, Reason: "unknown shop"}
		}
		seen[id] = struct{}{}
		shopIDs = append(shopIDs, id)
	}
	if len(shopIDs) == 0 {
		return nil, &models.ValidationError{Field: "shop_ids", Reason: "at least one shop is required"}
	}

	dr, err := ParseDateRange(req.DateRange)
	if err != nil {
		return nil, err
	}

	return &searchPlan{
		query:   query,
		shopIDs: shopIDs,
		filter: Filter{
			Category:      req.Category,
			DateRange:     dr,
			ProductSearch: req.ProductSearch,
		},
	}, nil
}

// ParseDateRange reads "YYYY-MM-DD - YYYY-MM-DD". An empty string means no
// range.
func ParseDateRange(s string) (*DateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	invalid := func(reason string) error {
		return &models.ValidationError{Field: "date_range", Value: s, Reason: reason}
	}

	from, to, ok := strings.Cut(s, " - ")
	if !ok {
		return nil, invalid("expected YYYY-MM-DD - YYYY-MM-DD")
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return nil, invalid("bad start date")
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(to))
	if err != nil {
		return nil, invalid("bad end date")
	}
	if end.Before(start) {
		return nil, invalid("start date is after end date")
	}
	return &DateRange{Start: start, End: end}, nil
}

func failedOutcome(shopID string, kind models.ErrorKind, err error, elapsed time.Duration) *models.SearchOutcome {
	return &models.SearchOutcome{
		ShopID:    shopID,
		ErrorKind: kind,
		Error:     err.Error(),
		Duration:  elapsed,
	}
}

// interrupted records a shop cut short by the end of the whole search:
// timeout when a deadline passed, cancelled when the caller gave up.
func interrupted(ctx context.Context, shopID string, elapsed time.Duration, detail string) *models.SearchOutcome {
	kind := models.KindCancelled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = models.KindTimeout
	}
	return &models.SearchOutcome{
		ShopID:    shopID,
		ErrorKind: kind,
		Error:     fmt.Sprintf("search %s: %s", kind, detail),
		Duration:  elapsed,
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
