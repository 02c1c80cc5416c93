package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"sepet/models"
	"sepet/utils"
)

// PostgresShopSource reads shop entries from the shops table.
type PostgresShopSource struct {
	db *sql.DB
}

// NewPostgresShopSource opens a connection to PostgreSQL and waits until the
// server answers.
func NewPostgresShopSource(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresShopSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second}
	}
	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &PostgresShopSource{db: db}, nil
}

func (s *PostgresShopSource) Name() string { return "postgres:shops" }

// LoadShops returns every shop row in id order.
func (s *PostgresShopSource) LoadShops(ctx context.Context) ([]ShopEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shop_id, shop_name, base_url, scraper_module, scraper_class, COALESCE(logo, '')
		FROM shops
		ORDER BY id
	`)
	if err != nil {
		return nil, &models.ConfigError{Source: s.Name(), Reason: "query shops", Err: err}
	}
	defer rows.Close()

	var entries []ShopEntry
	for rows.Next() {
		var e ShopEntry
		if err := rows.Scan(&e.ShopID, &e.ShopName, &e.BaseURL, &e.ScraperModule, &e.ScraperClass, &e.Logo); err != nil {
			return nil, &models.ConfigError{Source: s.Name(), Reason: "scan shop row", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ConfigError{Source: s.Name(), Reason: "iterate shops", Err: err}
	}
	if len(entries) == 0 {
		return nil, &models.ConfigError{Source: s.Name(), Reason: "no shops defined"}
	}
	return entries, nil
}

func (s *PostgresShopSource) Close() error {
	return s.db.Close()
}
