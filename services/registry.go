package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"sepet/models"
	"sepet/storage"
)

// ShopRegistry is the validated, ordered set of configured shops. It is not
// mutated after load.
type ShopRegistry struct {
	shops []models.ShopDescriptor
	byID  map[string]int
}

// LoadShopRegistry reads and validates every entry from source.
func LoadShopRegistry(ctx context.Context, source storage.ShopSource) (*ShopRegistry, error) {
	entries, err := source.LoadShops(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: load shops: %w", err)
	}
	return NewShopRegistry(source.Name(), entries)
}

// NewShopRegistry validates entries already in memory. sourceName is used in
// error messages only.
func NewShopRegistry(sourceName string, entries []storage.ShopEntry) (*ShopRegistry, error) {
	if len(entries) == 0 {
		return nil, &models.ConfigError{Source: sourceName, Reason: "no shops configured"}
	}

	reg := &ShopRegistry{
		shops: make([]models.ShopDescriptor, 0, len(entries)),
		byID:  make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		d := models.ShopDescriptor{
			ID:      strings.TrimSpace(e.ShopID),
			Name:    strings.TrimSpace(e.ShopName),
			BaseURL: strings.TrimSpace(e.BaseURL),
			Module:  strings.TrimSpace(e.ScraperModule),
			Class:   strings.TrimSpace(e.ScraperClass),
			Logo:    strings.TrimSpace(e.Logo),
		}
		if d.ID == "" {
			d.ID = strings.ToLowerSpecial(unicode.TurkishCase, d.Name)
		}
		if d.Name == "" {
			d.Name = d.ID
		}

		missing := func(field string) error {
			return &models.ConfigError{
				Source: sourceName,
				Reason: fmt.Sprintf("shop #%d (%q): missing %s", i+1, d.ID, field),
			}
		}
		switch {
		case d.ID == "":
			return nil, missing("shop_id or shop_name")
		case d.BaseURL == "":
			return nil, missing("base_url")
		case d.Module == "":
			return nil, missing("scraper_module")
		case d.Class == "":
			return nil, missing("scraper_class")
		}

		if _, dup := reg.byID[d.ID]; dup {
			return nil, &models.ConfigError{
				Source: sourceName,
				Reason: fmt.Sprintf("duplicate shop id %q", d.ID),
			}
		}
		reg.byID[d.ID] = len(reg.shops)
		reg.shops = append(reg.shops, d)
	}

	return reg, nil
}

// Resolve returns the descriptor for id, or an error wrapping
// models.ErrNotFound.
func (r *ShopRegistry) Resolve(id string) (models.ShopDescriptor, error) {
	i, ok := r.byID[id]
	if !ok {
		return models.ShopDescriptor{}, fmt.Errorf("registry: shop %q: %w", id, models.ErrNotFound)
	}
	return r.shops[i], nil
}

// Has reports whether id is configured.
func (r *ShopRegistry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Shops returns a copy of the configured shops in configuration order.
func (r *ShopRegistry) Shops() []models.ShopDescriptor {
	out := make([]models.ShopDescriptor, len(r.shops))
	copy(out, r.shops)
	return out
}

// Len is the number of configured shops.
func (r *ShopRegistry) Len() int { return len(r.shops) }
