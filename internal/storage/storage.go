// Package storage opens the store backend selected by the configuration.
package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/Shivanand-hulikatti/event-signup/internal/config"
	"github.com/Shivanand-hulikatti/event-signup/internal/database"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository/sqlite"
)

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, cfg config.Config) (repository.Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.DB)
		if err != nil {
			return repository.Stores{}, err
		}
		log.Println("✓ Connected to PostgreSQL")
		return postgres.New(pool), nil
	case config.DriverSQLite:
		stores, _, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return repository.Stores{}, err
		}
		log.Printf("✓ Opened SQLite database %s", cfg.SQLitePath)
		return stores, nil
	default:
		return repository.Stores{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
