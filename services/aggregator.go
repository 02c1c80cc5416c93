package services

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"sepet/models"
	"sepet/utils"
)

// priceRegexp captures the first numeric token, separators included.
var priceRegexp = regexp.MustCompile(`\d[\d.,]*`)

// Batch is one shop's successful result.
type Batch struct {
	ShopID   string
	Products []*models.RawProduct
}

// Filter narrows the merged listing.
type Filter struct {
	Category      string
	DateRange     *DateRange
	ProductSearch string
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls on a day within the range.
func (r *DateRange) Contains(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Aggregator merges per-shop batches into one ordered listing.
type Aggregator struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewAggregator creates an Aggregator stamping records with the wall clock.
func NewAggregator(logger *utils.Logger) *Aggregator {
	return &Aggregator{logger: logger, now: time.Now}
}

// Aggregate normalises, filters and orders the records of every batch.
// All records of one call share a single ScrapedAt.
func (a *Aggregator) Aggregate(batches []Batch, filter Filter) []*models.Product {
	scrapedAt := a.now()
	category := normaliseText(filter.Category)
	search := foldTurkish(normaliseText(filter.ProductSearch))

	var (
		result  []*models.Product
		dropped int
	)
	for _, b := range batches {
		seen := make(map[string]struct{})
		for _, r := range b.Products {
			if r == nil {
				continue
			}

			name := normaliseText(r.Name)
			if name == "" {
				dropped++
				continue
			}

			url := strings.TrimSpace(r.URL)
			if url != "" {
				if _, dup := seen[url]; dup {
					a.debug("[aggregator] Duplicate URL skipped: %s", url)
					dropped++
					continue
				}
				seen[url] = struct{}{}
			}

			hint := normaliseText(r.CategoryHint)
			if category != "" {
				if hint != "" && foldTurkish(hint) != foldTurkish(category) {
					dropped++
					continue
				}
				hint = category
			}

			if filter.DateRange != nil && r.ListedAt != nil && !filter.DateRange.Contains(*r.ListedAt) {
				dropped++
				continue
			}

			if search != "" && !strings.Contains(foldTurkish(name), search) {
				dropped++
				continue
			}

			result = append(result, &models.Product{
				Name:      name,
				Price:     ParsePrice(r.Price),
				ListPrice: ParsePrice(r.ListPrice),
				ShopID:    b.ShopID,
				Category:  hint,
				URL:       url,
				ImageURL:  strings.TrimSpace(r.ImageURL),
				ScrapedAt: scrapedAt,
			})
		}
	}

	SortProducts(result)

	if a.logger != nil {
		a.logger.Info("[aggregator] Merged %d batches → %d products (dropped %d)",
			len(batches), len(result), dropped)
	}
	return result
}

// SortProducts orders by ascending price with unpriced records last; ties
// are broken by shop id then name.
func SortProducts(products []*models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		pi, pj := products[i], products[j]
		if pi.Price.Valid != pj.Price.Valid {
			return pi.Price.Valid
		}
		if pi.Price.Valid {
			if c := pi.Price.Decimal.Cmp(pj.Price.Decimal); c != 0 {
				return c < 0
			}
		}
		if pi.ShopID != pj.ShopID {
			return pi.ShopID < pj.ShopID
		}
		return pi.Name < pj.Name
	})
}

// ParsePrice reads the first number in raw as a price.
// Examples:
//
//	"1.234,56 TL" → 1234.56
//	"$1,234.56"   → 1234.56
//	"₺33,00"      → 33.00
//	"1.250"       → 1250
//	"Fiyat bilgisi yok" → null
func ParsePrice(raw string) decimal.NullDecimal {
	token := priceRegexp.FindString(raw)
	token = strings.TrimRight(token, ".,")
	if token == "" {
		return decimal.NullDecimal{}
	}

	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")

	var intPart, fracPart string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := max(lastDot, lastComma)
		intPart, fracPart = token[:sep], token[sep+1:]
	case lastDot >= 0 || lastComma >= 0:
		sepChar := "."
		if lastComma >= 0 {
			sepChar = ","
		}
		parts := strings.Split(token, sepChar)
		last := parts[len(parts)-1]
		// "1.250" and "12,500,000" group thousands; "3,5" and "12.99" do not.
		if len(parts) > 2 || len(last) == 3 {
			intPart = token
		} else {
			intPart, fracPart = strings.Join(parts[:len(parts)-1], ""), last
		}
	default:
		intPart = token
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, intPart)
	if fracPart != "" {
		digits += "." + fracPart
	}

	d, err := decimal.NewFromString(digits)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func (a *Aggregator) debug(format string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(format, args...)
	}
}
