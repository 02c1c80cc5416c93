package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"sepet/models"
	"sepet/scraper"
	"sepet/utils"
)

// ScraperFactory turns shop ids into live scrapers. Each id is resolved at
// most once per factory; the instance or the resolution failure is reused
// for every later request.
type ScraperFactory struct {
	registry *ShopRegistry
	table    *scraper.Table
	opts     scraper.Options
	logger   *utils.Logger

	mu      sync.Mutex
	entries map[string]*factoryEntry

	constructed atomic.Int64
}

type factoryEntry struct {
	once    sync.Once
	scraper scraper.Scraper
	closer  io.Closer
	err     error
}

// NewScraperFactory builds a factory over registry and table. opts is passed
// to every plugin constructor.
func NewScraperFactory(registry *ShopRegistry, table *scraper.Table, opts scraper.Options, logger *utils.Logger) *ScraperFactory {
	return &ScraperFactory{
		registry: registry,
		table:    table,
		opts:     opts,
		logger:   logger,
		entries:  make(map[string]*factoryEntry),
	}
}

// Get returns the scraper for shopID, building it on first use. Failures are
// *models.ResolutionError and are returned unchanged on every later call.
func (f *ScraperFactory) Get(ctx context.Context, shopID string) (scraper.Scraper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	e, ok := f.entries[shopID]
	if !ok {
		e = &factoryEntry{}
		f.entries[shopID] = e
	}
	f.mu.Unlock()

	e.once.Do(func() { f.resolve(shopID, e) })
	if e.err != nil {
		return nil, e.err
	}
	return e.scraper, nil
}

// Constructed is the number of plugin constructor calls made so far.
func (f *ScraperFactory) Constructed() int64 { return f.constructed.Load() }

func (f *ScraperFactory) resolve(shopID string, e *factoryEntry) {
	fail := func(reason string, cause error) {
		e.err = &models.ResolutionError{ShopID: shopID, Reason: reason, Err: cause}
		if f.logger != nil {
			f.logger.Error("[factory] %v", e.err)
		}
	}

	shop, err := f.registry.Resolve(shopID)
	if err != nil {
		fail("unknown shop", err)
		return
	}

	ctor, ok := f.table.Lookup(shop.Module, shop.Class)
	if !ok {
		fail(fmt.Sprintf("no plugin registered as %s.%s", shop.Module, shop.Class), nil)
		return
	}

	s, err := f.construct(ctor, shop)
	if err != nil {
		fail("constructor failed", err)
		return
	}
	if s == nil {
		fail("constructor returned no scraper", nil)
		return
	}

	if c, ok := s.(io.Closer); ok {
		e.closer = c
	}
	if r, ok := s.(scraper.Reentrant); !ok || !r.Reentrant() {
		s = newExclusiveScraper(s)
	}
	e.scraper = s

	if f.logger != nil {
		f.logger.Info("[factory] Resolved %s → %s.%s", shopID, shop.Module, shop.Class)
	}
}

func (f *ScraperFactory) construct(ctor scraper.Constructor, shop models.ShopDescriptor) (s scraper.Scraper, err error) {
	f.constructed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return ctor(shop, f.opts)
}

// Close releases every instance that holds external resources.
func (f *ScraperFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for id, e := range f.entries {
		if e.closer == nil {
			continue
		}
		if err := e.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("factory: close %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// exclusiveScraper allows one Search at a time on a non-reentrant instance.
type exclusiveScraper struct {
	inner scraper.Scraper
	slot  chan struct{}
}

func newExclusiveScraper(inner scraper.Scraper) *exclusiveScraper {
	return &exclusiveScraper{inner: inner, slot: make(chan struct{}, 1)}
}

func (x *exclusiveScraper) Search(ctx context.Context, query string) ([]*models.RawProduct, error) {
	select {
	case x.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-x.slot }()
	return x.inner.Search(ctx, query)
}
