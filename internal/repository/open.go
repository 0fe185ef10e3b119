package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/admissions-portal/portal/internal/config"
	"github.com/admissions-portal/portal/internal/database"
	"github.com/admissions-portal/portal/internal/ids"
)

// Open builds the store selected by cfg.Backend. For the sql backend it
// connects, creates any missing table, and closes the pool on failure.
func Open(cfg config.Config) (Store, error) {
	gen := ids.New(ids.ParseStrategy(cfg.IDStrategy))
	switch cfg.Backend {
	case "csv":
		s, err := NewCSVStore(cfg.CSVDir, gen)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sql":
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewSQLStore(db, gen), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
