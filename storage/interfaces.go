package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// ShopEntry is one shop row as it appears in configuration, before validation.
type ShopEntry struct {
	ShopID        string `json:"shop_id"`
	ShopName      string `json:"shop_name"`
	BaseURL       string `json:"base_url"`
	ScraperModule string `json:"scraper_module"`
	ScraperClass  string `json:"scraper_class"`
	Logo          string `json:"logo"`
}

// ShopSource is the interface any shop configuration backend must satisfy.
type ShopSource interface {
	LoadShops(ctx context.Context) ([]ShopEntry, error)
	Name() string
}

// CategorySource yields category labels in file order.
type CategorySource interface {
	LoadCategories(ctx context.Context) ([]string, error)
	Name() string
}

// NewCategorySource picks a reader by file extension: .xlsx workbooks go
// through excelize, everything else is read as ';'-separated CSV.
func NewCategorySource(path, column string) CategorySource {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return NewXLSXCategorySource(path, column)
	}
	return NewCSVCategorySource(path, column)
}
