// Package lifecycle — активация, деактивация и удаление водителей, ТС и маршрутов.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/observability"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Manager struct {
	pool         *pgxpool.Pool
	log          *zap.Logger
	timeout      time.Duration
	calendarSync bool
}

func NewManager(pool *pgxpool.Pool, log *zap.Logger, dbTimeout time.Duration, calendarSync bool) *Manager {
	return &Manager{pool: pool, log: log.Named("lifecycle"), timeout: dbTimeout, calendarSync: calendarSync}
}

func (m *Manager) fail(ctx context.Context, op string, err error, fields ...zap.Field) result.Result {
	observability.Report(ctx, m.log, op, err, fields...)
	return result.Internal("")
}

func (m *Manager) setActive(ctx context.Context, op string, id int64, active bool,
	set func(context.Context, db.Querier, int64, bool) (bool, error), missing string) result.Result {
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	ok, err := set(ctx, m.pool, id, active)
	if err != nil {
		return m.fail(ctx, op, err, zap.Int64("id", id))
	}
	if !ok {
		return result.NotFound(missing, id)
	}
	m.log.Info("active flag changed", zap.String("op", op), zap.Int64("id", id), zap.Bool("active", active))
	if active {
		return result.Success("активирован")
	}
	return result.Success("деактивирован")
}

func (m *Manager) ActivateDriver(ctx context.Context, id int64) result.Result {
	return m.setActive(ctx, "lifecycle.ActivateDriver", id, true, db.SetDriverActive, "водитель %d не найден")
}

func (m *Manager) DeactivateDriver(ctx context.Context, id int64) result.Result {
	return m.setActive(ctx, "lifecycle.DeactivateDriver", id, false, db.SetDriverActive, "водитель %d не найден")
}

func (m *Manager) ActivateVehicle(ctx context.Context, id int64) result.Result {
	return m.setActive(ctx, "lifecycle.ActivateVehicle", id, true, db.SetVehicleActive, "транспортное средство %d не найдено")
}

func (m *Manager) DeactivateVehicle(ctx context.Context, id int64) result.Result {
	return m.setActive(ctx, "lifecycle.DeactivateVehicle", id, false, db.SetVehicleActive, "транспортное средство %d не найдено")
}

func (m *Manager) ActivateRoute(ctx context.Context, id int64) result.Result {
	return m.setActive(ctx, "lifecycle.ActivateRoute", id, true, db.SetRouteActive, "маршрут %d не найден")
}

func (m *Manager) DeactivateRoute(ctx context.Context, id int64) result.Result {
	return m.setActive(ctx, "lifecycle.DeactivateRoute", id, false, db.SetRouteActive, "маршрут %d не найден")
}

// entity — как заблокировать и удалить конкретный вид сущности.
type entity struct {
	kind    models.EntityKind
	noun    string // «У водителя», «У ТС», «У маршрута»
	missing string
	lock    func(ctx context.Context, tx pgx.Tx, id int64) (guard string, err error)
	remove  func(ctx context.Context, q db.Querier, id int64) (bool, error)
}

var (
	userEntity = entity{
		kind:    models.EntityUser,
		noun:    "У пользователя",
		missing: "пользователь %d не найден",
		lock: func(ctx context.Context, tx pgx.Tx, id int64) (string, error) {
			u, err := db.LockUser(ctx, tx, id)
			if err != nil {
				return "", err
			}
			if u.Role == models.Admin {
				return "Нельзя удалить администратора", nil
			}
			return "", nil
		},
		remove: db.DeleteUser,
	}
	vehicleEntity = entity{
		kind:    models.EntityVehicle,
		noun:    "У ТС",
		missing: "транспортное средство %d не найдено",
		lock: func(ctx context.Context, tx pgx.Tx, id int64) (string, error) {
			_, err := db.LockVehicle(ctx, tx, id)
			return "", err
		},
		remove: db.DeleteVehicle,
	}
	routeEntity = entity{
		kind:    models.EntityRoute,
		noun:    "У маршрута",
		missing: "маршрут %d не найден",
		lock: func(ctx context.Context, tx pgx.Tx, id int64) (string, error) {
			_, err := db.LockRoute(ctx, tx, id)
			return "", err
		},
		remove: db.DeleteRoute,
	}
)

// DeleteUser удаляет водителя. Администраторов не удаляет никогда, даже с force.
func (m *Manager) DeleteUser(ctx context.Context, id int64, force bool) result.Result {
	return m.delete(ctx, "lifecycle.DeleteUser", userEntity, id, force)
}

func (m *Manager) DeleteVehicle(ctx context.Context, id int64, force bool) result.Result {
	return m.delete(ctx, "lifecycle.DeleteVehicle", vehicleEntity, id, force)
}

func (m *Manager) DeleteRoute(ctx context.Context, id int64, force bool) result.Result {
	return m.delete(ctx, "lifecycle.DeleteRoute", routeEntity, id, force)
}

// delete — одна транзакция: блокировка строки, подсчёт рейсов, отказ или каскад.
func (m *Manager) delete(ctx context.Context, op string, e entity, id int64, force bool) result.Result {
	ctx, cancel := ctxutil.WithDBTimeout(ctx, m.timeout)
	defer cancel()

	var (
		res     result.Result
		cascade int64
	)
	err := db.InTx(ctx, m.pool, func(tx pgx.Tx) error {
		guard, err := e.lock(ctx, tx, id)
		if errors.Is(err, db.ErrNotFound) {
			res = result.NotFound(e.missing, id)
			return nil
		}
		if err != nil {
			return err
		}
		if guard != "" {
			res = result.Conflict("%s", guard)
			return nil
		}

		n, err := db.CountTripsBy(ctx, tx, e.kind, id)
		if err != nil {
			return err
		}
		if n > 0 && !force {
			res = result.Referenced("%s есть %d рейсов. Используйте принудительное удаление или сначала удалите рейсы.", e.noun, n)
			return nil
		}
		if n > 0 {
			if m.calendarSync {
				events, err := db.TripEventsBy(ctx, tx, e.kind, id)
				if err != nil {
					return err
				}
				for _, ev := range events {
					eventID := ev.EventID
					if err := db.EnqueueCalendar(ctx, tx, ev.TripID, db.OutboxDelete, &eventID); err != nil {
						return err
					}
				}
			}
			if cascade, err = db.DeleteTripsBy(ctx, tx, e.kind, id); err != nil {
				return err
			}
		}
		ok, err := e.remove(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			res = result.NotFound(e.missing, id)
			return nil
		}
		if cascade > 0 {
			res = result.Success(fmt.Sprintf("удалено вместе с рейсами: %d", cascade))
		} else {
			res = result.Success("удалено")
		}
		return nil
	})
	if err != nil {
		return m.fail(ctx, op, err, zap.Int64("id", id), zap.Bool("force", force))
	}
	if res.OK() {
		m.log.Info("entity deleted", zap.String("kind", string(e.kind)), zap.Int64("id", id), zap.Int64("trips", cascade))
	}
	return res
}
