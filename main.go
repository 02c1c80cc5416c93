package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"sepet/api"
	"sepet/config"
	"sepet/models"
	"sepet/scraper"
	"sepet/scraper/shops"
	"sepet/services"
	"sepet/storage"
	"sepet/utils"
)

func main() {
	query := flag.String("query", "", "run one search for this term and print a report, instead of serving the API")
	shopList := flag.String("shops", "", "comma-separated shop ids for -query (default: every configured shop)")
	category := flag.String("category", "", "category to tag and filter results with")
	dateRange := flag.String("date-range", "", `listing date range, "YYYY-MM-DD - YYYY-MM-DD"`)
	productSearch := flag.String("product-search", "", "keep only products whose name contains this text")
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	logger.Info("=== sepet price search starting ===")
	logger.Info("Config — shops: %s | concurrency: %d | shop timeout: %s | search timeout: %s",
		cfg.ShopSource, cfg.MaxConcurrency, cfg.ShopTimeout, cfg.SearchTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Loaded %d shops and %d categories", catalog.Registry().Len(), len(catalog.Categories()))

	factory := services.NewScraperFactory(catalog.Registry(), shops.DefaultTable(), scraper.Options{
		Logger:    logger,
		UserAgent: cfg.UserAgent,
		ChromeBin: cfg.ChromeBin,
		ProxyURL:  cfg.ProxyURL,
		MaxPages:  cfg.MaxPages,
		PageDelay: cfg.PageDelay,
	}, logger)
	defer func() {
		if err := factory.Close(); err != nil {
			logger.Warn("Closing scrapers: %v", err)
		}
	}()

	orchestrator := services.NewOrchestrator(catalog.Registry(), factory, services.NewAggregator(logger),
		services.OrchestratorOptions{
			MaxConcurrency: cfg.MaxConcurrency,
			RateLimitMs:    cfg.RateLimitMs,
			ShopTimeout:    cfg.ShopTimeout,
			SearchTimeout:  cfg.SearchTimeout,
		}, logger)

	if *query != "" {
		req := models.SearchRequest{
			Query:         *query,
			ShopIDs:       splitList(*shopList),
			Category:      *category,
			DateRange:     *dateRange,
			ProductSearch: *productSearch,
		}
		if len(req.ShopIDs) == 0 {
			for _, s := range catalog.Shops() {
				req.ShopIDs = append(req.ShopIDs, s.ID)
			}
		}
		if err := runOnce(ctx, orchestrator, req, logger); err != nil {
			logger.Error("Search failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, api.NewHandler(catalog, orchestrator, logger), logger); err != nil {
		logger.Error("Server error: %v", err)
		os.Exit(1)
	}
}

func loadCatalog(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*services.Catalog, error) {
	var source storage.ShopSource
	switch cfg.ShopSource {
	case "postgres":
		pg, err := storage.NewPostgresShopSource(ctx, cfg.DSN(), &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		defer pg.Close()
		source = pg
	case "file", "":
		source = storage.NewFileShopSource(cfg.ShopsConfigPath)
	default:
		return nil, &models.ConfigError{Source: "SHOP_SOURCE", Reason: fmt.Sprintf("unknown shop source %q", cfg.ShopSource)}
	}

	registry, err := services.LoadShopRegistry(ctx, source)
	if err != nil {
		return nil, err
	}
	categories, err := services.LoadCategories(ctx, storage.NewCategorySource(cfg.CategoriesPath, cfg.CategoriesColumn))
	if err != nil {
		return nil, err
	}
	return services.NewCatalog(registry, categories), nil
}

func runOnce(ctx context.Context, orchestrator *services.Orchestrator, req models.SearchRequest, logger *utils.Logger) error {
	result, err := orchestrator.Search(ctx, req)
	if err != nil {
		return err
	}

	reports := services.NewReportService(logger)
	reports.Print(os.Stdout, reports.Generate(result))
	return nil
}

func serve(ctx context.Context, cfg *config.Config, handler *api.Handler, logger *utils.Logger) error {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.SetupRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
