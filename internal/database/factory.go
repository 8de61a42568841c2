package database

import (
	"context"
	"fmt"

	"gridbot/internal/config"
)

// NewRepository creates a lot store for the configured driver.
func NewRepository(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	switch cfg.Driver {
	case "postgres":
		connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return NewPostgresRepository(ctx, connStr)
	case "sqlite":
		return NewSQLiteRepository(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}
