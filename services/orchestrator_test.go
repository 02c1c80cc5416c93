package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sepet/models"
	"sepet/scraper"
)

func TestSearchHealthyFanOut(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"a": {reentrant: true, products: []*models.RawProduct{raw("Süt A1", "12,00 TL", "a1"), raw("Süt A2", "9,00 TL", "a2")}},
		"b": {reentrant: true, products: []*models.RawProduct{raw("Süt B1", "10,50 TL", "b1")}},
	}, "a", "b")

	res, err := fx.orchestrator(OrchestratorOptions{MaxConcurrency: 4}).
		Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if res.ID == "" || res.Query != "süt" {
		t.Errorf("unexpected header id=%q query=%q", res.ID, res.Query)
	}
	if len(res.Products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(res.Products))
	}
	if res.Products[0].Name != "Süt A2" || res.Products[1].Name != "Süt B1" {
		t.Errorf("products not ordered by price: %s, %s", res.Products[0].Name, res.Products[1].Name)
	}
	for i, want := range []struct {
		id    string
		count int
	}{{"a", 2}, {"b", 1}} {
		o := res.Outcomes[i]
		if o.ShopID != want.id || !o.Succeeded || o.RecordCount != want.count {
			t.Errorf("outcome %d = %+v; want %s ok with %d records", i, o, want.id, want.count)
		}
	}
}

func TestSearchIsolatesShopFailure(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"a": {reentrant: true, products: []*models.RawProduct{raw("Süt", "10", "a1")}},
		"b": {reentrant: true, err: models.NewScrapeError("b", models.KindNetwork, errors.New("connection reset"))},
		"c": {reentrant: true, err: errors.New("something odd")},
	}, "a", "b", "c")

	res, err := fx.orchestrator(OrchestratorOptions{MaxConcurrency: 3}).
		Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("partial failure must not fail the search: %v", err)
	}

	if len(res.Products) != 1 || res.Products[0].ShopID != "a" {
		t.Errorf("expected only shop a's product, got %+v", res.Products)
	}
	if !res.Outcomes[0].Succeeded {
		t.Error("shop a should succeed")
	}
	if o := res.Outcomes[1]; o.Succeeded || o.ErrorKind != models.KindNetwork || !strings.Contains(o.Error, "connection reset") {
		t.Errorf("shop b outcome = %+v; want network failure", o)
	}
	if o := res.Outcomes[2]; o.Succeeded || o.ErrorKind != models.KindUnknown {
		t.Errorf("shop c outcome = %+v; want unknown failure", o)
	}
}

func TestSearchUnparsablePriceKept(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"a": {reentrant: true, products: []*models.RawProduct{raw("Süt", "Fiyat bilgisi yok", "a1")}},
	}, "a")

	res, err := fx.orchestrator(OrchestratorOptions{}).
		Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Products) != 1 || res.Products[0].Price.Valid {
		t.Errorf("expected one product with null price, got %+v", res.Products)
	}
}

func TestSearchValidation(t *testing.T) {
	spy := &spyScraper{reentrant: true}
	fx := newFixture(map[string]*spyScraper{"a": spy}, "a")
	o := fx.orchestrator(OrchestratorOptions{})

	tests := []struct {
		name    string
		req     models.SearchRequest
		field   string
		mention string
	}{
		{"empty query", models.SearchRequest{Query: "   ", ShopIDs: []string{"a"}}, "query", ""},
		{"no shops", models.SearchRequest{Query: "süt"}, "shop_ids", ""},
		{"blank shops", models.SearchRequest{Query: "süt", ShopIDs: []string{" ", ""}}, "shop_ids", ""},
		{"unknown shop", models.SearchRequest{Query: "süt", ShopIDs: []string{"a", "unknown_shop"}}, "shop_ids", "unknown_shop"},
		{"bad date range", models.SearchRequest{Query: "süt", ShopIDs: []string{"a"}, DateRange: "2024-02-30 - 2024-03-01"}, "date_range", ""},
		{"reversed date range", models.SearchRequest{Query: "süt", ShopIDs: []string{"a"}, DateRange: "2024-03-02 - 2024-03-01"}, "date_range", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := o.Search(context.Background(), tt.req)
			if res != nil {
				t.Error("rejected request must not produce a result")
			}
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *models.ValidationError, got %v", err)
			}
			if !errors.Is(err, models.ErrValidation) {
				t.Error("expected errors.Is(err, ErrValidation)")
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q; want %q", ve.Field, tt.field)
			}
			if tt.mention != "" && !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error %q does not name %q", err, tt.mention)
			}
		})
	}

	if n := spy.calls.Load(); n != 0 {
		t.Errorf("scraper called %d times for rejected requests", n)
	}
}

func TestSearchResolvesEachShopOnce(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"a": {reentrant: true},
		"b": {reentrant: true},
	}, "a", "b")
	f := fx.factory()
	o := NewOrchestrator(fx.registry, f, NewAggregator(newTestLogger()), OrchestratorOptions{MaxConcurrency: 2}, newTestLogger())

	for i := 0; i < 3; i++ {
		if _, err := o.Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"a", "b", "a"}}); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.Constructed(); got != 2 {
		t.Errorf("constructors ran %d times; want 2", got)
	}
	if got := fx.spies["a"].calls.Load(); got != 3 {
		t.Errorf("duplicate shop id should be collapsed: a searched %d times; want 3", got)
	}
}

func TestSearchRunsShopsConcurrently(t *testing.T) {
	delays := []time.Duration{10, 50, 5, 100, 1}
	ids := []string{"s1", "s2", "s3", "s4", "s5"}
	spies := make(map[string]*spyScraper)
	for i, id := range ids {
		spies[id] = &spyScraper{
			reentrant: true,
			delay:     delays[i] * time.Millisecond,
			products:  []*models.RawProduct{raw("Ürün "+id, "1", id)},
		}
	}
	fx := newFixture(spies, ids...)

	start := time.Now()
	res, err := fx.orchestrator(OrchestratorOptions{MaxConcurrency: 5}).
		Search(context.Background(), models.SearchRequest{Query: "ürün", ShopIDs: ids})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatal(err)
	}

	// Sequential would take 166ms.
	if elapsed > 150*time.Millisecond {
		t.Errorf("search took %s; expected close to the slowest shop (100ms)", elapsed)
	}
	for i, o := range res.Outcomes {
		if o.ShopID != ids[i] || !o.Succeeded {
			t.Errorf("outcome %d = %+v; want %s succeeded", i, o, ids[i])
		}
	}
}

func TestSearchShopTimeout(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"fast": {reentrant: true, products: []*models.RawProduct{raw("Süt", "1", "f")}},
		"slow": {reentrant: true, delay: time.Second},
	}, "fast", "slow")

	start := time.Now()
	res, err := fx.orchestrator(OrchestratorOptions{MaxConcurrency: 2, ShopTimeout: 30 * time.Millisecond}).
		Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"fast", "slow"}})
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("shop timeout was not enforced")
	}
	if !res.Outcomes[0].Succeeded || len(res.Products) != 1 {
		t.Errorf("fast shop should succeed: %+v", res.Outcomes[0])
	}
	if o := res.Outcomes[1]; o.Succeeded || o.ErrorKind != models.KindTimeout {
		t.Errorf("slow shop outcome = %+v; want timeout", o)
	}
}

func TestSearchGlobalTimeoutKeepsCompletedShops(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"fast":    {reentrant: true, products: []*models.RawProduct{raw("Süt", "1", "f")}},
		"slow":    {reentrant: true, delay: time.Second},
		"waiting": {reentrant: true},
	}, "fast", "slow", "waiting")

	// One worker: "waiting" never gets a slot before the deadline.
	res, err := fx.orchestrator(OrchestratorOptions{MaxConcurrency: 1, SearchTimeout: 50 * time.Millisecond}).
		Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"fast", "slow", "waiting"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Products) != 1 || !res.Outcomes[0].Succeeded {
		t.Errorf("completed shop should be aggregated: %+v", res.Outcomes[0])
	}
	for _, o := range res.Outcomes[1:] {
		if o.Succeeded || o.ErrorKind != models.KindTimeout {
			t.Errorf("%s outcome = %+v; want timeout", o.ShopID, o)
		}
	}
}

func TestSearchCallerCancel(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"slow": {reentrant: true, delay: time.Second},
	}, "slow")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res, err := fx.orchestrator(OrchestratorOptions{MaxConcurrency: 1}).
		Search(ctx, models.SearchRequest{Query: "süt", ShopIDs: []string{"slow"}})
	if err != nil {
		t.Fatal(err)
	}
	if o := res.Outcomes[0]; o.Succeeded || o.ErrorKind != models.KindCancelled {
		t.Errorf("outcome = %+v; want cancelled", o)
	}
	if res.Products == nil {
		t.Error("products should be an empty list, not nil")
	}
}

func TestSearchStandingResolutionFailure(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{
		"ok": {reentrant: true, products: []*models.RawProduct{raw("Süt", "1", "o")}},
	}, "ok")
	// Same table, plus a configured shop with no registered plugin.
	reg, err := NewShopRegistry("test", append(registryEntries(fx.registry),
		shopEntry("ghost", "shops/ghost", "GhostScraper")))
	if err != nil {
		t.Fatal(err)
	}
	f := NewScraperFactory(reg, fx.table, scraper.Options{}, newTestLogger())
	o := NewOrchestrator(reg, f, NewAggregator(newTestLogger()), OrchestratorOptions{MaxConcurrency: 2}, newTestLogger())

	for i := 0; i < 2; i++ {
		res, err := o.Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"ghost", "ok"}})
		if err != nil {
			t.Fatal(err)
		}
		if g := res.Outcomes[0]; g.Succeeded || g.ErrorKind != models.KindConfig {
			t.Errorf("ghost outcome = %+v; want config failure", g)
		}
		if !res.Outcomes[1].Succeeded {
			t.Error("healthy shop should still succeed")
		}
	}
}

func TestSearchScraperPanicIsContained(t *testing.T) {
	fx := newFixture(map[string]*spyScraper{"p": {reentrant: true}}, "p")
	o := NewOrchestrator(fx.registry, panicSource{}, NewAggregator(newTestLogger()), OrchestratorOptions{}, newTestLogger())

	res, err := o.Search(context.Background(), models.SearchRequest{Query: "süt", ShopIDs: []string{"p"}})
	if err != nil {
		t.Fatal(err)
	}
	if out := res.Outcomes[0]; out.Succeeded || out.ErrorKind != models.KindUnknown || !strings.Contains(out.Error, "panic") {
		t.Errorf("outcome = %+v; want unknown failure mentioning the panic", out)
	}
}
