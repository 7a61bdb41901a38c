package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/jackc/pgx/v5"
)

const vehicleColumns = `id, number, model, capacity::float8, is_active, created_at`

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := row.Scan(&v.ID, &v.Number, &v.Model, &v.Capacity, &v.IsActive, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func CreateVehicle(ctx context.Context, q Querier, number, model string, capacity float64) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO vehicles (number, model, capacity)
		VALUES ($1, $2, $3)
		RETURNING id
	`, strings.TrimSpace(number), strings.TrimSpace(model), capacity).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db.CreateVehicle: %w", err)
	}
	return id, nil
}

func GetVehicle(ctx context.Context, q Querier, id int64) (*models.Vehicle, error) {
	v, err := scanVehicle(q.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	return v, notFound(err)
}

func LockVehicle(ctx context.Context, tx pgx.Tx, id int64) (*models.Vehicle, error) {
	v, err := scanVehicle(tx.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1 FOR UPDATE`, id))
	return v, notFound(err)
}

// ListVehicles — onlyActive=true отдаёт то, что можно выбрать в новом рейсе.
func ListVehicles(ctx context.Context, q Querier, onlyActive bool) ([]models.Vehicle, error) {
	rows, err := q.Query(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE is_active OR NOT $1
		ORDER BY number
	`, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("db.ListVehicles: %w", err)
	}
	defer rows.Close()

	var out []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func SetVehicleActive(ctx context.Context, q Querier, id int64, active bool) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE vehicles SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return false, fmt.Errorf("db.SetVehicleActive: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func DeleteVehicle(ctx context.Context, q Querier, id int64) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db.DeleteVehicle: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const routeColumns = `id, number, name, price::float8, description, is_active, created_at`

func scanRoute(row pgx.Row) (*models.Route, error) {
	var r models.Route
	if err := row.Scan(&r.ID, &r.Number, &r.Name, &r.Price, &r.Description, &r.IsActive, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func CreateRoute(ctx context.Context, q Querier, number, name string, price float64, description string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO routes (number, name, price, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, strings.TrimSpace(number), strings.TrimSpace(name), price, strings.TrimSpace(description)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db.CreateRoute: %w", err)
	}
	return id, nil
}

func GetRoute(ctx context.Context, q Querier, id int64) (*models.Route, error) {
	r, err := scanRoute(q.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id))
	return r, notFound(err)
}

func LockRoute(ctx context.Context, tx pgx.Tx, id int64) (*models.Route, error) {
	r, err := scanRoute(tx.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1 FOR UPDATE`, id))
	return r, notFound(err)
}

func ListRoutes(ctx context.Context, q Querier, onlyActive bool) ([]models.Route, error) {
	rows, err := q.Query(ctx, `
		SELECT `+routeColumns+`
		FROM routes
		WHERE is_active OR NOT $1
		ORDER BY number
	`, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("db.ListRoutes: %w", err)
	}
	defer rows.Close()

	var out []models.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func SetRouteActive(ctx context.Context, q Querier, id int64, active bool) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE routes SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return false, fmt.Errorf("db.SetRouteActive: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func SetRoutePrice(ctx context.Context, q Querier, id int64, price float64) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE routes SET price = $2 WHERE id = $1`, id, price)
	if err != nil {
		return false, fmt.Errorf("db.SetRoutePrice: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func DeleteRoute(ctx context.Context, q Querier, id int64) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db.DeleteRoute: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
