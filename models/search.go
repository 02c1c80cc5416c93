package models

import "time"

// SearchRequest is what the request-handling layer hands to the orchestrator.
type SearchRequest struct {
	Query         string   `json:"query"`
	ShopIDs       []string `json:"shop_ids"`
	Category      string   `json:"category,omitempty"`
	DateRange     string   `json:"date_range,omitempty"`
	ProductSearch string   `json:"product_search,omitempty"`
}

// SearchOutcome reports how a single shop fared during one search.
type SearchOutcome struct {
	ShopID      string        `json:"shop_id"`
	Succeeded   bool          `json:"succeeded"`
	ErrorKind   ErrorKind     `json:"error_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	RecordCount int           `json:"record_count"`
	Duration    time.Duration `json:"duration_ns"`
}

// SearchResult is the merged listing plus one outcome per requested shop,
// in request order.
type SearchResult struct {
	ID       string           `json:"id"`
	Query    string           `json:"query"`
	Products []*Product       `json:"products"`
	Outcomes []*SearchOutcome `json:"outcomes"`
}

// Failed returns the outcomes of shops that did not succeed.
func (r *SearchResult) Failed() []*SearchOutcome {
	var failed []*SearchOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			failed = append(failed, o)
		}
	}
	return failed
}

// SearchReport holds summary statistics over one search result.
type SearchReport struct {
	Query          string
	TotalProducts  int
	PricedProducts int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	Cheapest       *Product
	ProductsByShop map[string]int
	FailedShops    []*SearchOutcome
}
