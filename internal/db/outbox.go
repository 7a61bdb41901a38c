package db

import (
	"context"
	"fmt"
	"time"
)

type OutboxAction string

const (
	OutboxCreate OutboxAction = "create"
	OutboxUpdate OutboxAction = "update"
	OutboxDelete OutboxAction = "delete"
)

// OutboxEntry — отложенное действие над событием календаря.
type OutboxEntry struct {
	ID        int64
	TripID    int64
	Action    OutboxAction
	EventID   *string
	Attempts  int
	LastError *string
	CreatedAt time.Time
}

// EnqueueCalendar пишет задание в той же транзакции, что и смена статуса рейса.
func EnqueueCalendar(ctx context.Context, q Querier, tripID int64, action OutboxAction, eventID *string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO calendar_outbox (trip_id, action, event_id)
		VALUES ($1, $2, $3)
	`, tripID, string(action), eventID)
	if err != nil {
		return fmt.Errorf("db.EnqueueCalendar: %w", err)
	}
	return nil
}

// PendingCalendar — необработанные задания в порядке постановки.
func PendingCalendar(ctx context.Context, q Querier, maxAttempts, limit int) ([]OutboxEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, trip_id, action, event_id, attempts, last_error, created_at
		FROM calendar_outbox
		WHERE processed_at IS NULL AND attempts < $1
		ORDER BY id
		LIMIT $2
	`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("db.PendingCalendar: %w", err)
	}
	defer rows.Close()

	out := make([]OutboxEntry, 0, limit)
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.TripID, &e.Action, &e.EventID, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func MarkCalendarDone(ctx context.Context, q Querier, id int64) error {
	_, err := q.Exec(ctx, `UPDATE calendar_outbox SET processed_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db.MarkCalendarDone: %w", err)
	}
	return nil
}

func MarkCalendarFailed(ctx context.Context, q Querier, id int64, reason string) error {
	_, err := q.Exec(ctx, `
		UPDATE calendar_outbox SET attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("db.MarkCalendarFailed: %w", err)
	}
	return nil
}

// CalendarBacklog — сколько заданий ещё ждут обработки.
func CalendarBacklog(ctx context.Context, q Querier, maxAttempts int) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM calendar_outbox
		WHERE processed_at IS NULL AND attempts < $1
	`, maxAttempts).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db.CalendarBacklog: %w", err)
	}
	return n, nil
}
