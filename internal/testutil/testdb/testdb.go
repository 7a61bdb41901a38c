//go:build testutil
// +build testutil

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type DBHandle struct {
	Pool   *pgxpool.Pool
	sqlDB  *sql.DB
	cancel func()
	stop   func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.Pool != nil {
		h.Pool.Close()
	}
	if h.sqlDB != nil {
		_ = h.sqlDB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Reset очищает все таблицы между тестами.
func (h *DBHandle) Reset(ctx context.Context) error {
	_, err := h.Pool.Exec(ctx, `TRUNCATE calendar_outbox, trips, routes, vehicles, users RESTART IDENTITY CASCADE`)
	return err
}

func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("expedition"),
		postgres.WithUsername("expedition"),
		postgres.WithPassword("expedition"),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	fail := func(err error) (*DBHandle, error) {
		_ = pg.Terminate(context.Background())
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}

	sqlDB, err := sql.Open("postgres", uri)
	if err != nil {
		return fail(err)
	}
	if err := waitReady(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return fail(err)
	}
	if err := applyMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return fail(err)
	}

	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		_ = sqlDB.Close()
		return fail(err)
	}

	return &DBHandle{
		Pool:   pool,
		sqlDB:  sqlDB,
		cancel: cancel,
		stop:   pg.Terminate,
	}, nil
}

func waitReady(ctx context.Context, db *sql.DB) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("db not ready")
}

func repoRoot() (string, error) {
	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("go.mod not found from %s", wd)
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	migDir := filepath.Join(root, "internal", "db", "migrations")
	ents, err := os.ReadDir(migDir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(migDir, e.Name()))
		}
	}
	sort.Strings(files) // порядок применения важен
	for _, f := range files {
		sqlText, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		up := extractGooseUp(string(sqlText))
		if strings.TrimSpace(up) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, up); err != nil {
			return fmt.Errorf("migration %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// Берём только блок между "-- +goose Up" и "-- +goose Down"
func extractGooseUp(s string) string {
	upTag := "-- +goose Up"
	downTag := "-- +goose Down"
	upIdx := strings.Index(s, upTag)
	if upIdx == -1 {
		return s
	}
	rest := s[upIdx+len(upTag):]
	if downIdx := strings.Index(rest, downTag); downIdx != -1 {
		return rest[:downIdx]
	}
	return rest
}
