// Package trips — жизненный цикл рейса: created → started → completed,
// отмена из created/started. Каждый переход делается одной условной записью в БД.
package trips

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/metrics"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/observability"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	MinWaybillLength = 6
	// MaxQuantity — предел колонки quantity_delivered (INTEGER).
	MaxQuantity      = math.MaxInt32
)

type Options struct {
	DBTimeout time.Duration
	Location  *time.Location
	// CalendarSync — писать задания для календаря вместе со сменой статуса.
	CalendarSync bool
	Now          func() time.Time
}

type Service struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	opts Options
}

func NewService(pool *pgxpool.Pool, log *zap.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{pool: pool, log: log.Named("trips"), opts: opts}
}

func (s *Service) fail(ctx context.Context, op string, err error, fields ...zap.Field) result.Result {
	observability.Report(ctx, s.log, op, err, fields...)
	return result.Internal("")
}

func observe(op string, r result.Result) result.Result {
	metrics.ObserveTransition(op, string(r.Kind))
	return r
}

// ValidateWaybill — номер путевого листа: только цифры, не короче MinWaybillLength.
func ValidateWaybill(w string) result.Result {
	w = strings.TrimSpace(w)
	if len(w) < MinWaybillLength {
		return result.Validation("номер путевого листа должен содержать не менее %d цифр", MinWaybillLength)
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return result.Validation("номер путевого листа должен содержать только цифры")
		}
	}
	return result.Success("")
}

func ValidateQuantity(q int) result.Result {
	if q <= 0 {
		return result.Validation("количество должно быть положительным целым числом")
	}
	if q > MaxQuantity {
		return result.Validation("количество не может превышать %d", MaxQuantity)
	}
	return result.Success("")
}

// Today — текущая дата в часовом поясе сервиса, полночь.
func (s *Service) Today() time.Time {
	now := s.opts.Now().In(s.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Create — новый рейс в статусе created. Нулевая дата — сегодня.
func (s *Service) Create(ctx context.Context, in models.NewTrip) result.Of[int64] {
	const op = "trips.Create"
	if r := ValidateWaybill(in.WaybillNumber); !r.OK() {
		return result.Fail[int64](observe("create", r))
	}
	if r := ValidateQuantity(in.QuantityDelivered); !r.OK() {
		return result.Fail[int64](observe("create", r))
	}
	if in.TripDate.IsZero() {
		in.TripDate = s.Today()
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, s.opts.DBTimeout)
	defer cancel()

	id, err := db.InsertTrip(ctx, s.pool, in)
	if err != nil {
		r := s.classifyInsert(ctx, op, err, in)
		return result.Fail[int64](observe("create", r))
	}
	s.log.Info("trip created", zap.Int64("trip_id", id), zap.Int64("user_id", in.UserID),
		zap.String("waybill", in.WaybillNumber))
	observe("create", result.Success(""))
	return result.Value(id, "рейс создан")
}

func (s *Service) classifyInsert(ctx context.Context, op string, err error, in models.NewTrip) result.Result {
	switch {
	case db.IsUniqueViolation(err) && db.Constraint(err) == "trips_one_active_per_user":
		return result.Conflict("у водителя уже есть активный рейс")
	case db.IsForeignKeyViolation(err):
		switch db.Constraint(err) {
		case "trips_user_id_fkey":
			return result.NotFound("водитель %d не найден", in.UserID)
		case "trips_vehicle_id_fkey":
			return result.NotFound("транспортное средство %d не найдено", in.VehicleID)
		case "trips_route_id_fkey":
			return result.NotFound("маршрут %d не найден", in.RouteID)
		}
		return result.NotFound("связанная запись не найдена")
	case db.IsCheckViolation(err):
		return result.Validation("некорректные данные рейса")
	}
	return s.fail(ctx, op, err, zap.Int64("user_id", in.UserID))
}

// Start — created → started. Из конкурентных вызовов успешен ровно один.
// eventID, если задан, сохраняется как id события календаря.
func (s *Service) Start(ctx context.Context, tripID int64, eventID *string) result.Result {
	const op = "trips.Start"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, s.opts.DBTimeout)
	defer cancel()

	var started bool
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		ok, stored, err := db.StartTrip(ctx, tx, tripID, eventID)
		if err != nil || !ok {
			return err
		}
		started = true
		if s.opts.CalendarSync && stored == nil {
			return db.EnqueueCalendar(ctx, tx, tripID, db.OutboxCreate, nil)
		}
		return nil
	})
	if err != nil {
		return observe("start", s.fail(ctx, op, err, zap.Int64("trip_id", tripID)))
	}
	if !started {
		return observe("start", s.rejected(ctx, op, tripID, models.TripStarted, "начать"))
	}
	s.log.Info("trip started", zap.Int64("trip_id", tripID))
	return observe("start", result.Success("поездка начата"))
}

// Complete — started → completed.
func (s *Service) Complete(ctx context.Context, tripID int64) result.Result {
	return s.finish(ctx, "complete", tripID, models.TripCompleted, db.CompleteTrip, "завершить", "поездка завершена")
}

// Cancel — created|started → cancelled.
func (s *Service) Cancel(ctx context.Context, tripID int64) result.Result {
	return s.finish(ctx, "cancel", tripID, models.TripCancelled, db.CancelTrip, "отменить", "рейс отменён")
}

type transition func(ctx context.Context, q db.Querier, id int64) (bool, *string, error)

func (s *Service) finish(ctx context.Context, name string, tripID int64, to models.TripStatus, apply transition, verb, okMsg string) result.Result {
	op := "trips." + name
	ctx, cancel := ctxutil.WithDBTimeout(ctx, s.opts.DBTimeout)
	defer cancel()

	var done bool
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		ok, _, err := apply(ctx, tx, tripID)
		if err != nil || !ok {
			return err
		}
		done = true
		if s.opts.CalendarSync {
			// событие могло ещё не создаться; тогда синхронизатор пропустит обновление,
			// а создание возьмёт актуальный снимок рейса
			return db.EnqueueCalendar(ctx, tx, tripID, db.OutboxUpdate, nil)
		}
		return nil
	})
	if err != nil {
		return observe(name, s.fail(ctx, op, err, zap.Int64("trip_id", tripID)))
	}
	if !done {
		return observe(name, s.rejected(ctx, op, tripID, to, verb))
	}
	s.log.Info("trip "+name, zap.Int64("trip_id", tripID))
	return observe(name, result.Success(okMsg))
}

// rejected — условная запись не затронула строк: рейса нет, статус не тот
// или рейс успели изменить между записью и чтением.
func (s *Service) rejected(ctx context.Context, op string, tripID int64, to models.TripStatus, verb string) result.Result {
	t, err := db.GetTrip(ctx, s.pool, tripID)
	if errors.Is(err, db.ErrNotFound) {
		return result.NotFound("рейс %d не найден", tripID)
	}
	if err != nil {
		return s.fail(ctx, op, err, zap.Int64("trip_id", tripID))
	}
	return rejectedStatus(tripID, t.Status, to, verb)
}

func rejectedStatus(tripID int64, from, to models.TripStatus, verb string) result.Result {
	if models.CanTransition(from, to) {
		return result.Conflict("рейс %d изменён одновременно с вами, повторите попытку", tripID)
	}
	return result.Conflict("рейс %d нельзя %s: статус «%s»", tripID, verb, StatusLabel(from))
}

// Delete удаляет завершённый, отменённый или ещё не начатый рейс.
// cascadeEvent=true ставит в очередь удаление события календаря.
func (s *Service) Delete(ctx context.Context, tripID int64, cascadeEvent bool) result.Result {
	const op = "trips.Delete"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, s.opts.DBTimeout)
	defer cancel()

	var res result.Result
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		t, err := db.LockTrip(ctx, tx, tripID)
		if errors.Is(err, db.ErrNotFound) {
			res = result.NotFound("рейс %d не найден", tripID)
			return nil
		}
		if err != nil {
			return err
		}
		if t.Status == models.TripStarted {
			res = result.Conflict("Нельзя удалить активный рейс. Сначала завершите или отмените его.")
			return nil
		}
		if cascadeEvent && s.opts.CalendarSync && t.ExternalEventID != nil {
			if err := db.EnqueueCalendar(ctx, tx, tripID, db.OutboxDelete, t.ExternalEventID); err != nil {
				return err
			}
		}
		if _, err := db.DeleteTrip(ctx, tx, tripID); err != nil {
			return err
		}
		res = result.Success("рейс удалён")
		return nil
	})
	if err != nil {
		return observe("delete", s.fail(ctx, op, err, zap.Int64("trip_id", tripID)))
	}
	if res.OK() {
		s.log.Info("trip deleted", zap.Int64("trip_id", tripID))
	}
	return observe("delete", res)
}

// ActiveTripFor — последний рейс водителя в created/started; Value == nil, если такого нет.
func (s *Service) ActiveTripFor(ctx context.Context, userID int64) result.Of[*models.TripView] {
	const op = "trips.ActiveTripFor"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, s.opts.DBTimeout)
	defer cancel()

	v, err := db.ActiveTripView(ctx, s.pool, userID)
	if errors.Is(err, db.ErrNotFound) {
		return result.Value[*models.TripView](nil, "нет активного рейса")
	}
	if err != nil {
		return result.Fail[*models.TripView](s.fail(ctx, op, err, zap.Int64("user_id", userID)))
	}
	return result.Value(v, "")
}

func (s *Service) Get(ctx context.Context, tripID int64) result.Of[*models.TripView] {
	const op = "trips.Get"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, s.opts.DBTimeout)
	defer cancel()

	v, err := db.GetTripView(ctx, s.pool, tripID)
	if errors.Is(err, db.ErrNotFound) {
		return result.Fail[*models.TripView](result.NotFound("рейс %d не найден", tripID))
	}
	if err != nil {
		return result.Fail[*models.TripView](s.fail(ctx, op, err, zap.Int64("trip_id", tripID)))
	}
	return result.Value(v, "")
}

// StatusLabel — статус рейса по-русски.
func StatusLabel(st models.TripStatus) string {
	switch st {
	case models.TripCreated:
		return "создан"
	case models.TripStarted:
		return "в пути"
	case models.TripCompleted:
		return "завершён"
	case models.TripCancelled:
		return "отменён"
	}
	return string(st)
}
