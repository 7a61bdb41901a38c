//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/testutil/testdb"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestOneActiveTripPerUser(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	u := testdb.MustDriver(t, h, "Шофёров")
	v := testdb.MustVehicle(t, h, "9745")
	r := testdb.MustRoute(t, h, "12", 100)

	in := models.NewTrip{UserID: u, VehicleID: v, RouteID: r, WaybillNumber: "190361", QuantityDelivered: 5, TripDate: day(2025, 3, 1)}
	first, err := db.InsertTrip(ctx, h.Pool, in)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.InsertTrip(ctx, h.Pool, in)
	if !db.IsUniqueViolation(err) || db.Constraint(err) != "trips_one_active_per_user" {
		t.Fatalf("ожидали нарушение trips_one_active_per_user, получили %v", err)
	}

	ok, _, err := db.CancelTrip(ctx, h.Pool, first)
	if err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}
	if _, err := db.InsertTrip(ctx, h.Pool, in); err != nil {
		t.Fatalf("после отмены новый рейс должен создаваться: %v", err)
	}
}

func TestConditionalTransitions(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	u := testdb.MustDriver(t, h, "Шофёров")
	v := testdb.MustVehicle(t, h, "9745")
	r := testdb.MustRoute(t, h, "12", 100)
	id := testdb.MustTrip(t, h, u, v, r, day(2025, 3, 1))

	if ok, _, err := db.CompleteTrip(ctx, h.Pool, id); err != nil || ok {
		t.Fatalf("created → completed недопустим: ok=%v err=%v", ok, err)
	}
	evt := "evt-1"
	ok, stored, err := db.StartTrip(ctx, h.Pool, id, &evt)
	if err != nil || !ok || stored == nil || *stored != evt {
		t.Fatalf("start: ok=%v stored=%v err=%v", ok, stored, err)
	}
	if ok, _, _ := db.StartTrip(ctx, h.Pool, id, nil); ok {
		t.Fatal("повторный старт должен проигрывать")
	}
	if set, _ := db.SetTripEventID(ctx, h.Pool, id, "evt-2"); set {
		t.Fatal("существующий event id не перезаписывается")
	}
	ok, stored, err = db.CompleteTrip(ctx, h.Pool, id)
	if err != nil || !ok || *stored != evt {
		t.Fatalf("complete: ok=%v stored=%v err=%v", ok, stored, err)
	}
	trip, err := db.GetTrip(ctx, h.Pool, id)
	if err != nil {
		t.Fatal(err)
	}
	if trip.Status != models.TripCompleted || trip.StartedAt == nil || trip.CompletedAt == nil {
		t.Fatalf("неожиданное состояние %#v", trip)
	}
	if trip.CompletedAt.Before(*trip.StartedAt) {
		t.Fatal("completed_at раньше started_at")
	}
	if ok, _, _ := db.CancelTrip(ctx, h.Pool, id); ok {
		t.Fatal("завершённый рейс не отменяется")
	}

	if _, err := db.GetTrip(ctx, h.Pool, 999); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestReportFilters(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	u1 := testdb.MustDriver(t, h, "Первый")
	u2 := testdb.MustDriver(t, h, "Второй")
	v := testdb.MustVehicle(t, h, "9745")
	r := testdb.MustRoute(t, h, "12", 100)

	testdb.MustTripIn(t, h, u1, v, r, day(2025, 3, 1), models.TripCancelled, nil, nil)
	testdb.MustTripIn(t, h, u1, v, r, day(2025, 3, 5), models.TripCancelled, nil, nil)
	testdb.MustTripIn(t, h, u2, v, r, day(2025, 3, 10), models.TripCancelled, nil, nil)
	testdb.MustTripIn(t, h, u2, v, r, day(2025, 4, 1), models.TripCreated, nil, nil)

	tests := []struct {
		name string
		f    models.ReportFilter
		want int
	}{
		{"все", models.ReportFilter{}, 4},
		{"включительный диапазон", models.ReportFilter{Range: models.DateRange{From: day(2025, 3, 1), To: day(2025, 3, 10)}}, 3},
		{"только from", models.ReportFilter{Range: models.DateRange{From: day(2025, 3, 5)}}, 3},
		{"водитель", models.ReportFilter{UserID: u1}, 2},
		{"статус", models.ReportFilter{Status: models.TripCreated}, 1},
		{"водитель и месяц", models.ReportFilter{UserID: u2, Range: models.DateRange{To: day(2025, 3, 31)}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := db.ReportTrips(ctx, h.Pool, tt.f)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.want {
				t.Fatalf("ожидали %d строк, получили %d", tt.want, len(rows))
			}
		})
	}

	rows, _ := db.ReportTrips(ctx, h.Pool, models.ReportFilter{})
	for i := 1; i < len(rows); i++ {
		if rows[i].TripDate.After(rows[i-1].TripDate) {
			t.Fatal("отчёт должен идти от новых дат к старым")
		}
	}
}

func TestCalendarOutboxQueue(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	evt := "evt-1"
	for _, a := range []db.OutboxAction{db.OutboxCreate, db.OutboxUpdate, db.OutboxDelete} {
		if err := db.EnqueueCalendar(ctx, h.Pool, 42, a, &evt); err != nil {
			t.Fatal(err)
		}
	}
	const maxAttempts = 2
	pending, err := db.PendingCalendar(ctx, h.Pool, maxAttempts, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 3 || pending[0].Action != db.OutboxCreate || pending[2].Action != db.OutboxDelete {
		t.Fatalf("неожиданная очередь %#v", pending)
	}

	if err := db.MarkCalendarDone(ctx, h.Pool, pending[0].ID); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < maxAttempts; i++ {
		if err := db.MarkCalendarFailed(ctx, h.Pool, pending[1].ID, "boom"); err != nil {
			t.Fatal(err)
		}
	}
	n, err := db.CalendarBacklog(ctx, h.Pool, maxAttempts)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("в очереди должно остаться одно задание, осталось %d", n)
	}
}

func TestChatLinking(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	a := testdb.MustDriver(t, h, "Первый")
	b := testdb.MustDriver(t, h, "Второй")

	if ok, err := db.LinkChat(ctx, h.Pool, a, 100); err != nil || !ok {
		t.Fatalf("link: ok=%v err=%v", ok, err)
	}
	if ok, _ := db.LinkChat(ctx, h.Pool, a, 200); ok {
		t.Fatal("привязанный пользователь не получает второй чат")
	}
	if _, err := db.LinkChat(ctx, h.Pool, b, 100); !db.IsUniqueViolation(err) {
		t.Fatalf("чужой чат должен давать unique violation, получили %v", err)
	}
	if err := db.ReleaseChat(ctx, h.Pool, 100, b); err != nil {
		t.Fatal(err)
	}
	if ok, err := db.SetChat(ctx, h.Pool, b, 100); err != nil || !ok {
		t.Fatalf("set chat: ok=%v err=%v", ok, err)
	}
	u, err := db.GetUserByChatID(ctx, h.Pool, 100)
	if err != nil || u.ID != b {
		t.Fatalf("чат должен принадлежать %d: %v %v", b, u, err)
	}
}
