package services

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"sepet/models"
	"sepet/scraper"
	"sepet/storage"
	"sepet/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard, io.Discard) }

// spyScraper returns canned products after an optional delay and counts calls.
type spyScraper struct {
	delay     time.Duration
	products  []*models.RawProduct
	err       error
	reentrant bool

	calls    atomic.Int32
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (s *spyScraper) Search(ctx context.Context, _ string) ([]*models.RawProduct, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.inFlight++
	s.peak = max(s.peak, s.inFlight)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.products, s.err
}

func (s *spyScraper) Reentrant() bool { return s.reentrant }

// fixture is a registry plus plugin table where every shop is backed by a
// spy registered under module "test/<id>".
type fixture struct {
	registry *ShopRegistry
	table    *scraper.Table
	spies    map[string]*spyScraper
}

func newFixture(spies map[string]*spyScraper, order ...string) *fixture {
	table := scraper.NewTable()
	entries := make([]storage.ShopEntry, 0, len(order))
	for _, id := range order {
		spy := spies[id]
		entries = append(entries, storage.ShopEntry{
			ShopID:        id,
			ShopName:      id,
			BaseURL:       "https://" + id + ".example",
			ScraperModule: "test/" + id,
			ScraperClass:  "Spy",
		})
		table.MustRegister("test/"+id, "Spy", func(models.ShopDescriptor, scraper.Options) (scraper.Scraper, error) {
			return spy, nil
		})
	}
	registry, err := NewShopRegistry("fixture", entries)
	if err != nil {
		panic(err)
	}
	return &fixture{registry: registry, table: table, spies: spies}
}

func (f *fixture) factory() *ScraperFactory {
	return NewScraperFactory(f.registry, f.table, scraper.Options{}, newTestLogger())
}

func (f *fixture) orchestrator(opts OrchestratorOptions) *Orchestrator {
	return NewOrchestrator(f.registry, f.factory(), NewAggregator(newTestLogger()), opts, newTestLogger())
}

func raw(name, price, url string) *models.RawProduct {
	return &models.RawProduct{Name: name, Price: price, URL: url}
}

func registryEntries(r *ShopRegistry) []storage.ShopEntry {
	var entries []storage.ShopEntry
	for _, s := range r.Shops() {
		entries = append(entries, shopEntry(s.ID, s.Module, s.Class))
	}
	return entries
}

func shopEntry(id, module, class string) storage.ShopEntry {
	return storage.ShopEntry{ShopID: id, BaseURL: "https://" + id + ".example", ScraperModule: module, ScraperClass: class}
}

type panickingScraper struct{}

func (panickingScraper) Search(context.Context, string) ([]*models.RawProduct, error) {
	panic("selector returned nil")
}

type panicSource struct{}

func (panicSource) Get(context.Context, string) (scraper.Scraper, error) {
	return panickingScraper{}, nil
}
