package db

import (
	"context"
	"fmt"

	"github.com/Spok95/expedition-bot/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate накатывает встроенные goose-миграции через database/sql поверх пула.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const op = "db.Migrate"

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.FS)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
