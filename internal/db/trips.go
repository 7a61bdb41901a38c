package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/jackc/pgx/v5"
)

const tripColumns = `t.id, t.user_id, t.vehicle_id, t.route_id, t.waybill_number, t.quantity_delivered,
	t.trip_date, t.created_at, t.status, t.started_at, t.completed_at, t.external_event_id`

const tripViewColumns = tripColumns + `,
	u.surname, u.first_name, COALESCE(u.middle_name, ''),
	v.number, v.model, r.number, r.name, r.price::float8`

const tripViewFrom = `
	FROM trips t
	JOIN users u ON u.id = t.user_id
	JOIN vehicles v ON v.id = t.vehicle_id
	JOIN routes r ON r.id = t.route_id`

func tripScanDest(t *models.Trip) []any {
	return []any{&t.ID, &t.UserID, &t.VehicleID, &t.RouteID, &t.WaybillNumber, &t.QuantityDelivered,
		&t.TripDate, &t.CreatedAt, &t.Status, &t.StartedAt, &t.CompletedAt, &t.ExternalEventID}
}

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var t models.Trip
	if err := row.Scan(tripScanDest(&t)...); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTripView(row pgx.Row) (*models.TripView, error) {
	var v models.TripView
	dest := append(tripScanDest(&v.Trip),
		&v.Surname, &v.FirstName, &v.MiddleName,
		&v.VehicleNumber, &v.VehicleModel, &v.RouteNumber, &v.RouteName, &v.RoutePrice)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &v, nil
}

// ownerColumn — колонка trips, ссылающаяся на сущность kind.
func ownerColumn(kind models.EntityKind) (string, error) {
	switch kind {
	case models.EntityUser:
		return "user_id", nil
	case models.EntityVehicle:
		return "vehicle_id", nil
	case models.EntityRoute:
		return "route_id", nil
	}
	return "", fmt.Errorf("unknown entity kind %q", kind)
}

func InsertTrip(ctx context.Context, q Querier, t models.NewTrip) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO trips (user_id, vehicle_id, route_id, waybill_number, quantity_delivered, trip_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, t.UserID, t.VehicleID, t.RouteID, strings.TrimSpace(t.WaybillNumber), t.QuantityDelivered, t.TripDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db.InsertTrip: %w", err)
	}
	return id, nil
}

// StartTrip — created → started одной условной записью. Из двух конкурентных
// вызовов строку обновит только один; второй получит ok=false.
// Возвращает итоговый external_event_id (переданный или уже сохранённый).
func StartTrip(ctx context.Context, q Querier, id int64, eventID *string) (ok bool, storedEventID *string, err error) {
	err = q.QueryRow(ctx, `
		UPDATE trips
		SET status = 'started', started_at = now(), external_event_id = COALESCE($2, external_event_id)
		WHERE id = $1 AND status = 'created'
		RETURNING external_event_id
	`, id, eventID).Scan(&storedEventID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("db.StartTrip: %w", err)
	}
	return true, storedEventID, nil
}

// CompleteTrip — started → completed.
func CompleteTrip(ctx context.Context, q Querier, id int64) (ok bool, eventID *string, err error) {
	err = q.QueryRow(ctx, `
		UPDATE trips
		SET status = 'completed', completed_at = now()
		WHERE id = $1 AND status = 'started'
		RETURNING external_event_id
	`, id).Scan(&eventID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("db.CompleteTrip: %w", err)
	}
	return true, eventID, nil
}

// CancelTrip — created|started → cancelled, без отметок времени.
func CancelTrip(ctx context.Context, q Querier, id int64) (ok bool, eventID *string, err error) {
	err = q.QueryRow(ctx, `
		UPDATE trips
		SET status = 'cancelled'
		WHERE id = $1 AND status IN ('created', 'started')
		RETURNING external_event_id
	`, id).Scan(&eventID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("db.CancelTrip: %w", err)
	}
	return true, eventID, nil
}

func GetTrip(ctx context.Context, q Querier, id int64) (*models.Trip, error) {
	t, err := scanTrip(q.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips t WHERE t.id = $1`, id))
	return t, notFound(err)
}

func LockTrip(ctx context.Context, tx pgx.Tx, id int64) (*models.Trip, error) {
	t, err := scanTrip(tx.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips t WHERE t.id = $1 FOR UPDATE`, id))
	return t, notFound(err)
}

func GetTripView(ctx context.Context, q Querier, id int64) (*models.TripView, error) {
	v, err := scanTripView(q.QueryRow(ctx, `SELECT `+tripViewColumns+tripViewFrom+` WHERE t.id = $1`, id))
	return v, notFound(err)
}

// ActiveTripView — самый свежий рейс водителя в статусе created/started.
func ActiveTripView(ctx context.Context, q Querier, userID int64) (*models.TripView, error) {
	v, err := scanTripView(q.QueryRow(ctx, `
		SELECT `+tripViewColumns+tripViewFrom+`
		WHERE t.user_id = $1 AND t.status IN ('created', 'started')
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT 1
	`, userID))
	return v, notFound(err)
}

func DeleteTrip(ctx context.Context, q Querier, id int64) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db.DeleteTrip: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountTripsBy — число рейсов, ссылающихся на сущность.
func CountTripsBy(ctx context.Context, q Querier, kind models.EntityKind, id int64) (int, error) {
	col, err := ownerColumn(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM trips WHERE `+col+` = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("db.CountTripsBy: %w", err)
	}
	return n, nil
}

// TripEvent — рейс с привязанным событием календаря.
type TripEvent struct {
	TripID  int64
	EventID string
}

func TripEventsBy(ctx context.Context, q Querier, kind models.EntityKind, id int64) ([]TripEvent, error) {
	col, err := ownerColumn(kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, external_event_id
		FROM trips
		WHERE `+col+` = $1 AND external_event_id IS NOT NULL
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("db.TripEventsBy: %w", err)
	}
	defer rows.Close()

	var out []TripEvent
	for rows.Next() {
		var e TripEvent
		if err := rows.Scan(&e.TripID, &e.EventID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func DeleteTripsBy(ctx context.Context, q Querier, kind models.EntityKind, id int64) (int64, error) {
	col, err := ownerColumn(kind)
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, `DELETE FROM trips WHERE `+col+` = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("db.DeleteTripsBy: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetTripEventID сохраняет id созданного события, если его ещё нет.
func SetTripEventID(ctx context.Context, q Querier, tripID int64, eventID string) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE trips SET external_event_id = $2
		WHERE id = $1 AND external_event_id IS NULL
	`, tripID, eventID)
	if err != nil {
		return false, fmt.Errorf("db.SetTripEventID: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
