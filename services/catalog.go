package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"sepet/models"
	"sepet/storage"
)

// LoadCategories reads the category seed and rejects duplicates, compared
// case-insensitively under Turkish rules. Blank rows are skipped.
func LoadCategories(ctx context.Context, source storage.CategorySource) ([]models.CategoryTerm, error) {
	names, err := source.LoadCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load categories: %w", err)
	}

	seen := make(map[string]struct{}, len(names))
	terms := make([]models.CategoryTerm, 0, len(names))
	for _, n := range names {
		n = normaliseText(n)
		if n == "" {
			continue
		}
		key := foldTurkish(n)
		if _, dup := seen[key]; dup {
			return nil, &models.ConfigError{Source: source.Name(), Reason: fmt.Sprintf("duplicate category %q", n)}
		}
		seen[key] = struct{}{}
		terms = append(terms, models.CategoryTerm{Name: n})
	}
	if len(terms) == 0 {
		return nil, &models.ConfigError{Source: source.Name(), Reason: "no categories configured"}
	}
	return terms, nil
}

// Catalog is the process-wide configuration built once at startup. All
// accessors return copies.
type Catalog struct {
	registry   *ShopRegistry
	categories []models.CategoryTerm
}

// NewCatalog bundles a loaded registry and category list.
func NewCatalog(registry *ShopRegistry, categories []models.CategoryTerm) *Catalog {
	cats := make([]models.CategoryTerm, len(categories))
	copy(cats, categories)
	return &Catalog{registry: registry, categories: cats}
}

// Registry returns the shop registry.
func (c *Catalog) Registry() *ShopRegistry { return c.registry }

// Shops lists the configured shops in configuration order.
func (c *Catalog) Shops() []models.ShopDescriptor { return c.registry.Shops() }

// Categories returns the categories in seed-file order.
func (c *Catalog) Categories() []models.CategoryTerm {
	out := make([]models.CategoryTerm, len(c.categories))
	copy(out, c.categories)
	return out
}

// SortedCategories returns the category names in Turkish collation order.
func (c *Catalog) SortedCategories() []string {
	names := make([]string, len(c.categories))
	for i, t := range c.categories {
		names[i] = t.Name
	}
	collate.New(language.Turkish).SortStrings(names)
	return names
}

// HasCategory reports whether name is one of the seeded categories.
func (c *Catalog) HasCategory(name string) bool {
	key := foldTurkish(strings.TrimSpace(name))
	for _, t := range c.categories {
		if foldTurkish(t.Name) == key {
			return true
		}
	}
	return false
}

func foldTurkish(s string) string {
	return strings.ToLowerSpecial(unicode.TurkishCase, s)
}
