package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"sepet/models"
	"sepet/utils"
)

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(result *models.SearchResult) *models.SearchReport {
	report := &models.SearchReport{
		ProductsByShop: make(map[string]int),
	}
	if result == nil {
		return report
	}

	report.Query = result.Query
	report.TotalProducts = len(result.Products)
	report.FailedShops = result.Failed()

	var (
		total  decimal.Decimal
		lo, hi decimal.Decimal
	)
	for _, p := range result.Products {
		report.ProductsByShop[p.ShopID]++
		if !p.Price.Valid {
			continue
		}

		price := p.Price.Decimal
		if report.PricedProducts == 0 || price.LessThan(lo) {
			lo = price
			report.Cheapest = p
		}
		if report.PricedProducts == 0 || price.GreaterThan(hi) {
			hi = price
		}
		total = total.Add(price)
		report.PricedProducts++
	}

	if report.PricedProducts > 0 {
		avg := total.Div(decimal.NewFromInt(int64(report.PricedProducts)))
		report.AveragePrice = avg.Round(2).InexactFloat64()
		report.MinPrice = lo.Round(2).InexactFloat64()
		report.MaxPrice = hi.Round(2).InexactFloat64()
	}

	if s.logger != nil {
		s.logger.Debug("[report] %d products, %d priced, %d failed shops",
			report.TotalProducts, report.PricedProducts, len(report.FailedShops))
	}
	return report
}

func (s *ReportService) Print(w io.Writer, r *models.SearchReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🛒 PRICE SEARCH: %s\033[0m\n", r.Query)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Products found   : \033[1m%d\033[0m\n", r.TotalProducts)
	fmt.Fprintf(w, "  With a price     : \033[1m%d\033[0m\n", r.PricedProducts)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (TL)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedProducts > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.Cheapest != nil {
		fmt.Fprintf(w, "\033[1;33m  Cheapest Product\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Cheapest.Name, 50))
		fmt.Fprintf(w, "  Shop  : %s\n", r.Cheapest.ShopID)
		fmt.Fprintf(w, "  Price : \033[1;32m%s TL\033[0m\n", r.Cheapest.Price.Decimal.StringFixed(2))
		if r.Cheapest.URL != "" {
			fmt.Fprintf(w, "  URL   : %s\n", r.Cheapest.URL)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Products by Shop\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ProductsByShop) == 0 {
		fmt.Fprintf(w, "  No products\n")
	} else {
		type shopCount struct {
			shop  string
			count int
		}
		var shops []shopCount
		for shop, cnt := range r.ProductsByShop {
			shops = append(shops, shopCount{shop, cnt})
		}
		sort.Slice(shops, func(i, j int) bool {
			if shops[i].count != shops[j].count {
				return shops[i].count > shops[j].count
			}
			return shops[i].shop < shops[j].shop
		})
		for _, sc := range shops {
			bar := strings.Repeat("█", min(sc.count, 30))
			fmt.Fprintf(w, "  %-20s %s (%d)\n", truncate(sc.shop, 18), bar, sc.count)
		}
	}

	if len(r.FailedShops) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "\033[1;31m  Failed Shops\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, o := range r.FailedShops {
			fmt.Fprintf(w, "  %-20s %-10s %s\n", truncate(o.ShopID, 18), o.ErrorKind, truncate(o.Error, 40))
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
