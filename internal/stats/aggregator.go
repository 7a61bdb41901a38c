// Package stats — отчёты и статистика поверх рейсов.
package stats

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/observability"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Aggregator struct {
	pool    *pgxpool.Pool
	log     *zap.Logger
	timeout time.Duration
	loc     *time.Location
	now     func() time.Time
}

func NewAggregator(pool *pgxpool.Pool, log *zap.Logger, dbTimeout time.Duration, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{pool: pool, log: log.Named("stats"), timeout: dbTimeout, loc: loc, now: time.Now}
}

func (a *Aggregator) fail(ctx context.Context, op string, err error, fields ...zap.Field) result.Result {
	observability.Report(ctx, a.log, op, err, fields...)
	return result.Internal("")
}

func checkRange(r models.DateRange) result.Result {
	if r.HasFrom() && r.HasTo() && r.To.Before(r.From) {
		return result.Validation("дата окончания раньше даты начала")
	}
	return result.Success("")
}

// Report — плоский отчёт по рейсам под фильтр.
func (a *Aggregator) Report(ctx context.Context, f models.ReportFilter) result.Of[[]models.ReportRow] {
	const op = "stats.Report"
	if r := checkRange(f.Range); !r.OK() {
		return result.Fail[[]models.ReportRow](r)
	}
	if f.Status != "" && !f.Status.Valid() {
		return result.Fail[[]models.ReportRow](result.Validation("неизвестный статус %q", f.Status))
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, a.timeout)
	defer cancel()

	views, err := db.ReportTrips(ctx, a.pool, f)
	if err != nil {
		return result.Fail[[]models.ReportRow](a.fail(ctx, op, err))
	}
	rows := make([]models.ReportRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, ReportRowOf(v))
	}
	return result.Value(rows, "")
}

func (a *Aggregator) DriverStatistics(ctx context.Context, r models.DateRange) result.Of[[]models.DriverStat] {
	const op = "stats.DriverStatistics"
	if res := checkRange(r); !res.OK() {
		return result.Fail[[]models.DriverStat](res)
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, a.timeout)
	defer cancel()

	out, err := db.DriverTotals(ctx, a.pool, r)
	if err != nil {
		return result.Fail[[]models.DriverStat](a.fail(ctx, op, err))
	}
	for i := range out {
		finalize(&out[i].TripTotals)
	}
	return result.Value(out, "")
}

func (a *Aggregator) VehicleStatistics(ctx context.Context, r models.DateRange) result.Of[[]models.VehicleStat] {
	const op = "stats.VehicleStatistics"
	if res := checkRange(r); !res.OK() {
		return result.Fail[[]models.VehicleStat](res)
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, a.timeout)
	defer cancel()

	out, err := db.VehicleTotals(ctx, a.pool, r)
	if err != nil {
		return result.Fail[[]models.VehicleStat](a.fail(ctx, op, err))
	}
	for i := range out {
		finalize(&out[i].TripTotals)
	}
	return result.Value(out, "")
}

func (a *Aggregator) RouteStatistics(ctx context.Context, r models.DateRange) result.Of[[]models.RouteStat] {
	const op = "stats.RouteStatistics"
	if res := checkRange(r); !res.OK() {
		return result.Fail[[]models.RouteStat](res)
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx, a.timeout)
	defer cancel()

	out, err := db.RouteTotals(ctx, a.pool, r)
	if err != nil {
		return result.Fail[[]models.RouteStat](a.fail(ctx, op, err))
	}
	for i := range out {
		finalize(&out[i].TripTotals)
	}
	return result.Value(out, "")
}

// Today — сегодняшняя дата в часовом поясе сервиса.
func (a *Aggregator) Today() time.Time {
	now := a.now().In(a.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Dashboard — сводка для панели администратора на сегодня.
func (a *Aggregator) Dashboard(ctx context.Context) result.Of[models.Dashboard] {
	const op = "stats.Dashboard"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, a.timeout)
	defer cancel()

	d, err := db.DashboardTotals(ctx, a.pool, a.Today())
	if err != nil {
		return result.Fail[models.Dashboard](a.fail(ctx, op, err))
	}
	d.Today.Revenue = round2(d.Today.Revenue)
	d.Week.Revenue = round2(d.Week.Revenue)
	d.Month.Revenue = round2(d.Month.Revenue)
	d.AvgDurationHours = round2(d.AvgDurationHours)
	d.CompletionRate = CompletionRate(d.Month.Completed, d.Month.Trips)
	return result.Value(d, "")
}

// UserInfo — карточка пользователя со счётчиками рейсов.
func (a *Aggregator) UserInfo(ctx context.Context, userID int64) result.Of[models.UserInfo] {
	const op = "stats.UserInfo"
	ctx, cancel := ctxutil.WithDBTimeout(ctx, a.timeout)
	defer cancel()

	u, err := db.GetUser(ctx, a.pool, userID)
	if errors.Is(err, db.ErrNotFound) {
		return result.Fail[models.UserInfo](result.NotFound("пользователь %d не найден", userID))
	}
	if err != nil {
		return result.Fail[models.UserInfo](a.fail(ctx, op, err, zap.Int64("user_id", userID)))
	}
	c, err := db.UserTrips(ctx, a.pool, userID)
	if err != nil {
		return result.Fail[models.UserInfo](a.fail(ctx, op, err, zap.Int64("user_id", userID)))
	}
	return result.Value(models.UserInfo{
		ID:             u.ID,
		FullName:       u.FullName(),
		Surname:        u.Surname,
		FirstName:      u.FirstName,
		MiddleName:     u.MiddleName,
		Role:           u.Role,
		ExternalChatID: u.ExternalChatID,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
		TotalTrips:     c.Total,
		CompletedTrips: c.Completed,
		StartedTrips:   c.Started,
		CancelledTrips: c.Cancelled,
		LastTripDate:   c.LastDate,
		HasChat:        u.ExternalChatID != nil,
	}, "")
}
