package lifecycle

import (
	"context"
	"math"
	"strings"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
	"go.uber.org/zap"
)

func badAmount(v float64) bool { return v < 0 || math.IsNaN(v) || math.IsInf(v, 0) }

func (m *Manager) CreateVehicle(ctx context.Context, number, model string, capacity float64) result.Of[int64] {
	const op = "lifecycle.CreateVehicle"
	if strings.TrimSpace(number) == "" || strings.TrimSpace(model) == "" {
		return result.Fail[int64](result.Validation("номер и модель ТС обязательны"))
	}
	if badAmount(capacity) {
		return result.Fail[int64](result.Validation("грузоподъёмность не может быть отрицательной"))
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	id, err := db.CreateVehicle(ctx, m.pool, number, model, capacity)
	if db.IsUniqueViolation(err) {
		return result.Fail[int64](result.Conflict("ТС с номером %s уже существует", strings.TrimSpace(number)))
	}
	if err != nil {
		return result.Fail[int64](m.fail(ctx, op, err))
	}
	m.log.Info("vehicle created", zap.Int64("vehicle_id", id))
	return result.Value(id, "ТС добавлено")
}

func (m *Manager) CreateRoute(ctx context.Context, number, name string, price float64, description string) result.Of[int64] {
	const op = "lifecycle.CreateRoute"
	if strings.TrimSpace(number) == "" || strings.TrimSpace(name) == "" {
		return result.Fail[int64](result.Validation("номер и название маршрута обязательны"))
	}
	if badAmount(price) {
		return result.Fail[int64](result.Validation("цена не может быть отрицательной"))
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	id, err := db.CreateRoute(ctx, m.pool, number, name, price, description)
	if db.IsUniqueViolation(err) {
		return result.Fail[int64](result.Conflict("маршрут с номером %s уже существует", strings.TrimSpace(number)))
	}
	if err != nil {
		return result.Fail[int64](m.fail(ctx, op, err))
	}
	m.log.Info("route created", zap.Int64("route_id", id))
	return result.Value(id, "маршрут добавлен")
}

// UpdateRoutePrice меняет цену; выручка по завершённым рейсам считается по текущей цене.
func (m *Manager) UpdateRoutePrice(ctx context.Context, id int64, price float64) result.Result {
	const op = "lifecycle.UpdateRoutePrice"
	if badAmount(price) {
		return result.Validation("цена не может быть отрицательной")
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	ok, err := db.SetRoutePrice(ctx, m.pool, id, price)
	if err != nil {
		return m.fail(ctx, op, err, zap.Int64("route_id", id))
	}
	if !ok {
		return result.NotFound("маршрут %d не найден", id)
	}
	return result.Success("цена обновлена")
}

func (m *Manager) ListVehicles(ctx context.Context, onlyActive bool) result.Of[[]models.Vehicle] {
	const op = "lifecycle.ListVehicles"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	out, err := db.ListVehicles(ctx, m.pool, onlyActive)
	if err != nil {
		return result.Fail[[]models.Vehicle](m.fail(ctx, op, err))
	}
	return result.Value(out, "")
}

func (m *Manager) ListRoutes(ctx context.Context, onlyActive bool) result.Of[[]models.Route] {
	const op = "lifecycle.ListRoutes"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	out, err := db.ListRoutes(ctx, m.pool, onlyActive)
	if err != nil {
		return result.Fail[[]models.Route](m.fail(ctx, op, err))
	}
	return result.Value(out, "")
}

func (m *Manager) ListDrivers(ctx context.Context) result.Of[[]models.User] {
	const op = "lifecycle.ListDrivers"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	out, err := db.ListUsers(ctx, m.pool, models.Driver)
	if err != nil {
		return result.Fail[[]models.User](m.fail(ctx, op, err))
	}
	return result.Value(out, "")
}
