package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/expedition-bot/internal/models"
)

func dateArg(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ReportTrips — рейсы под фильтр вместе с отображаемыми полями.
// Порядок: дата рейса по убыванию, затем id.
func ReportTrips(ctx context.Context, q Querier, f models.ReportFilter) ([]models.TripView, error) {
	query := `SELECT ` + tripViewColumns + tripViewFrom + ` WHERE 1=1`
	var args []any
	idx := 1
	if f.Range.HasFrom() {
		query += fmt.Sprintf(" AND t.trip_date >= $%d", idx)
		args = append(args, f.Range.From)
		idx++
	}
	if f.Range.HasTo() {
		query += fmt.Sprintf(" AND t.trip_date <= $%d", idx)
		args = append(args, f.Range.To)
		idx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND t.status = $%d", idx)
		args = append(args, string(f.Status))
		idx++
	}
	if f.UserID != 0 {
		query += fmt.Sprintf(" AND t.user_id = $%d", idx)
		args = append(args, f.UserID)
		idx++
	}
	if f.VehicleID != 0 {
		query += fmt.Sprintf(" AND t.vehicle_id = $%d", idx)
		args = append(args, f.VehicleID)
		idx++
	}
	if f.RouteID != 0 {
		query += fmt.Sprintf(" AND t.route_id = $%d", idx)
		args = append(args, f.RouteID)
	}
	query += " ORDER BY t.trip_date DESC, t.id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ReportTrips: %w", err)
	}
	defer rows.Close()

	var out []models.TripView
	for rows.Next() {
		v, err := scanTripView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Агрегаты по рейсам. Условие на дату стоит в JOIN, чтобы сущности без рейсов
// в периоде оставались в выборке с нулями. Средняя длительность считается
// только по рейсам с обеими отметками времени; NULL, если таких нет.
const tripAggregates = `
	COUNT(t.id),
	COUNT(t.id) FILTER (WHERE t.status = 'completed'),
	COUNT(t.id) FILTER (WHERE t.status = 'cancelled'),
	COALESCE(SUM(rp.price) FILTER (WHERE t.status = 'completed'), 0)::float8 AS revenue,
	COALESCE(SUM(t.quantity_delivered), 0)::bigint,
	(AVG(EXTRACT(EPOCH FROM (t.completed_at - t.started_at)) / 3600.0)
		FILTER (WHERE t.started_at IS NOT NULL AND t.completed_at IS NOT NULL))::float8`

const tripDateJoin = `
	AND ($1::date IS NULL OR t.trip_date >= $1::date)
	AND ($2::date IS NULL OR t.trip_date <= $2::date)`

func totalsDest(tt *models.TripTotals, avg **float64) []any {
	return []any{&tt.TotalTrips, &tt.CompletedTrips, &tt.CancelledTrips, &tt.TotalRevenue, &tt.TotalQuantity, avg}
}

func derefAvg(avg *float64) float64 {
	if avg == nil {
		return 0
	}
	return *avg
}

// DriverTotals — сырые (неокруглённые) агрегаты по активным водителям.
func DriverTotals(ctx context.Context, q Querier, r models.DateRange) ([]models.DriverStat, error) {
	rows, err := q.Query(ctx, `
		SELECT u.id, u.surname, u.first_name, COALESCE(u.middle_name, ''),`+tripAggregates+`
		FROM users u
		LEFT JOIN trips t ON t.user_id = u.id`+tripDateJoin+`
		LEFT JOIN routes rp ON rp.id = t.route_id
		WHERE u.role = 'driver' AND u.is_active
		GROUP BY u.id, u.surname, u.first_name, u.middle_name
		ORDER BY revenue DESC, u.id
	`, dateArg(r.From), dateArg(r.To))
	if err != nil {
		return nil, fmt.Errorf("db.DriverTotals: %w", err)
	}
	defer rows.Close()

	var out []models.DriverStat
	for rows.Next() {
		var (
			s                      models.DriverStat
			surname, first, middle string
			avg                    *float64
		)
		dest := append([]any{&s.DriverID, &surname, &first, &middle}, totalsDest(&s.TripTotals, &avg)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.DriverName = models.FullName(surname, first, middle)
		s.AvgDurationHours = derefAvg(avg)
		out = append(out, s)
	}
	return out, rows.Err()
}

func VehicleTotals(ctx context.Context, q Querier, r models.DateRange) ([]models.VehicleStat, error) {
	rows, err := q.Query(ctx, `
		SELECT v.id, v.number, v.model,`+tripAggregates+`
		FROM vehicles v
		LEFT JOIN trips t ON t.vehicle_id = v.id`+tripDateJoin+`
		LEFT JOIN routes rp ON rp.id = t.route_id
		WHERE v.is_active
		GROUP BY v.id, v.number, v.model
		ORDER BY revenue DESC, v.id
	`, dateArg(r.From), dateArg(r.To))
	if err != nil {
		return nil, fmt.Errorf("db.VehicleTotals: %w", err)
	}
	defer rows.Close()

	var out []models.VehicleStat
	for rows.Next() {
		var (
			s   models.VehicleStat
			avg *float64
		)
		dest := append([]any{&s.VehicleID, &s.VehicleNumber, &s.VehicleModel}, totalsDest(&s.TripTotals, &avg)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.AvgDurationHours = derefAvg(avg)
		out = append(out, s)
	}
	return out, rows.Err()
}

func RouteTotals(ctx context.Context, q Querier, r models.DateRange) ([]models.RouteStat, error) {
	rows, err := q.Query(ctx, `
		SELECT rp.id, rp.number, rp.name, rp.price::float8,`+tripAggregates+`
		FROM routes rp
		LEFT JOIN trips t ON t.route_id = rp.id`+tripDateJoin+`
		WHERE rp.is_active
		GROUP BY rp.id, rp.number, rp.name, rp.price
		ORDER BY revenue DESC, rp.id
	`, dateArg(r.From), dateArg(r.To))
	if err != nil {
		return nil, fmt.Errorf("db.RouteTotals: %w", err)
	}
	defer rows.Close()

	var out []models.RouteStat
	for rows.Next() {
		var (
			s   models.RouteStat
			avg *float64
		)
		dest := append([]any{&s.RouteID, &s.RouteNumber, &s.RouteName, &s.RoutePrice}, totalsDest(&s.TripTotals, &avg)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.AvgDurationHours = derefAvg(avg)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DashboardTotals — сводка для панели: день, 7 и 30 дней до today включительно.
// Округление и доля завершённых считаются выше.
func DashboardTotals(ctx context.Context, q Querier, today time.Time) (models.Dashboard, error) {
	var d models.Dashboard
	var avg *float64
	weekFrom := today.AddDate(0, 0, -6)
	monthFrom := today.AddDate(0, 0, -29)

	err := q.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE t.trip_date = $1::date),
			COUNT(*) FILTER (WHERE t.trip_date = $1::date AND t.status = 'completed'),
			COALESCE(SUM(r.price) FILTER (WHERE t.trip_date = $1::date AND t.status = 'completed'), 0)::float8,
			COUNT(*) FILTER (WHERE t.trip_date BETWEEN $2::date AND $1::date),
			COUNT(*) FILTER (WHERE t.trip_date BETWEEN $2::date AND $1::date AND t.status = 'completed'),
			COALESCE(SUM(r.price) FILTER (WHERE t.trip_date BETWEEN $2::date AND $1::date AND t.status = 'completed'), 0)::float8,
			COUNT(*) FILTER (WHERE t.trip_date BETWEEN $3::date AND $1::date),
			COUNT(*) FILTER (WHERE t.trip_date BETWEEN $3::date AND $1::date AND t.status = 'completed'),
			COALESCE(SUM(r.price) FILTER (WHERE t.trip_date BETWEEN $3::date AND $1::date AND t.status = 'completed'), 0)::float8,
			COUNT(*) FILTER (WHERE t.status = 'started'),
			(AVG(EXTRACT(EPOCH FROM (t.completed_at - t.started_at)) / 3600.0)
				FILTER (WHERE t.trip_date BETWEEN $3::date AND $1::date
					AND t.started_at IS NOT NULL AND t.completed_at IS NOT NULL))::float8
		FROM trips t
		JOIN routes r ON r.id = t.route_id
	`, today, weekFrom, monthFrom).Scan(
		&d.Today.Trips, &d.Today.Completed, &d.Today.Revenue,
		&d.Week.Trips, &d.Week.Completed, &d.Week.Revenue,
		&d.Month.Trips, &d.Month.Completed, &d.Month.Revenue,
		&d.StartedTrips, &avg,
	)
	if err != nil {
		return d, fmt.Errorf("db.DashboardTotals: trips: %w", err)
	}
	d.AvgDurationHours = derefAvg(avg)

	err = q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'driver' AND is_active),
			(SELECT COUNT(*) FROM vehicles WHERE is_active),
			(SELECT COUNT(*) FROM routes WHERE is_active)
	`).Scan(&d.ActiveDrivers, &d.ActiveVehicles, &d.ActiveRoutes)
	if err != nil {
		return d, fmt.Errorf("db.DashboardTotals: entities: %w", err)
	}
	return d, nil
}

// UserTripCounts — сводка по рейсам пользователя для карточки.
type UserTripCounts struct {
	Total     int
	Completed int
	Started   int
	Cancelled int
	LastDate  *time.Time
}

func UserTrips(ctx context.Context, q Querier, userID int64) (UserTripCounts, error) {
	var c UserTripCounts
	err := q.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'started'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			MAX(trip_date)
		FROM trips
		WHERE user_id = $1
	`, userID).Scan(&c.Total, &c.Completed, &c.Started, &c.Cancelled, &c.LastDate)
	if err != nil {
		return c, fmt.Errorf("db.UserTrips: %w", err)
	}
	return c, nil
}
