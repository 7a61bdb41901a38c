package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open — пул соединений к PostgreSQL. Каждая операция берёт соединение из пула
// и возвращает его по завершении.
func Open(ctx context.Context, dsn string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	const op = "db.Open"

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: parse dsn: %w", op, err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns >= 0 && minConns <= cfg.MaxConns {
		cfg.MinConns = minConns
	}
	cfg.HealthCheckPeriod = time.Minute
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	return pool, nil
}
