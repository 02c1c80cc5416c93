package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShopDescriptor identifies one retailer and tells the scraper factory which
// plugin serves it. Descriptors are loaded once and never mutated.
type ShopDescriptor struct {
	ID      string `json:"shop_id"`
	Name    string `json:"shop_name"`
	BaseURL string `json:"base_url"`
	Module  string `json:"scraper_module"`
	Class   string `json:"scraper_class"`
	Logo    string `json:"logo,omitempty"`
}

// CategoryTerm is one searchable grocery category label, e.g. "Süt".
type CategoryTerm struct {
	Name string `json:"name"`
}

// RawProduct holds unprocessed data exactly as a shop scraper found it.
// Prices are kept in the shop's own text format.
type RawProduct struct {
	Name          string
	Price         string
	ListPrice     string
	ImageURL      string
	URL           string
	CategoryHint  string
	ShopProductID string
	ListedAt      *time.Time
}

// Product is the normalized listing entry built by the aggregator.
type Product struct {
	Name      string              `json:"name"`
	Price     decimal.NullDecimal `json:"price"`
	ListPrice decimal.NullDecimal `json:"list_price"`
	ShopID    string              `json:"shop_id"`
	Category  string              `json:"category,omitempty"`
	URL       string              `json:"url,omitempty"`
	ImageURL  string              `json:"image_url,omitempty"`
	ScrapedAt time.Time           `json:"scraped_at"`
}
