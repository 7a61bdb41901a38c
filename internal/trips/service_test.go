//go:build testutil
// +build testutil

package trips_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/Spok95/expedition-bot/internal/testutil/testdb"
	"github.com/Spok95/expedition-bot/internal/trips"
	"go.uber.org/zap"
)

func startDB(t *testing.T) *testdb.DBHandle {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	return h
}

func newService(h *testdb.DBHandle, calendar bool) *trips.Service {
	return trips.NewService(h.Pool, zap.NewNop(), trips.Options{DBTimeout: 5 * time.Second, CalendarSync: calendar})
}

func TestTripLifecycle(t *testing.T) {
	ctx := context.Background()
	h := startDB(t)
	svc := newService(h, false)

	d1 := testdb.MustDriver(t, h, "Иванов")
	v1 := testdb.MustVehicle(t, h, "9745")
	r1 := testdb.MustRoute(t, h, "R1", 2500)

	created := svc.Create(ctx, models.NewTrip{
		UserID: d1, VehicleID: v1, RouteID: r1, WaybillNumber: "190361", QuantityDelivered: 1558,
	})
	if !created.OK() {
		t.Fatalf("create: %s", created)
	}
	id := created.Value
	mustStatus(t, h, id, models.TripCreated)

	active := svc.ActiveTripFor(ctx, d1)
	if !active.OK() || active.Value == nil || active.Value.ID != id || active.Value.VehicleNumber != "9745" {
		t.Fatalf("active trip: %s %+v", active, active.Value)
	}

	if res := svc.Complete(ctx, id); res.Kind != result.KindConflict {
		t.Fatalf("complete before start must conflict, got %s", res)
	}
	if res := svc.Start(ctx, id, nil); !res.OK() {
		t.Fatalf("start: %s", res)
	}
	if res := svc.Start(ctx, id, nil); res.Kind != result.KindConflict {
		t.Fatalf("second start: %s", res)
	}
	if res := svc.Delete(ctx, id, true); res.Kind != result.KindConflict {
		t.Fatalf("delete of started trip: %s", res)
	}
	if res := svc.Complete(ctx, id); !res.OK() {
		t.Fatalf("complete: %s", res)
	}

	trip, err := db.GetTrip(ctx, h.Pool, id)
	if err != nil {
		t.Fatal(err)
	}
	if trip.Status != models.TripCompleted || trip.StartedAt == nil || trip.CompletedAt == nil {
		t.Fatalf("completed trip: %+v", trip)
	}
	if res := svc.Cancel(ctx, id); res.Kind != result.KindConflict {
		t.Fatalf("cancel of completed trip: %s", res)
	}
	if res := svc.ActiveTripFor(ctx, d1); !res.OK() || res.Value != nil {
		t.Fatalf("no active trip expected: %+v", res.Value)
	}

	if res := svc.Delete(ctx, id, true); !res.OK() {
		t.Fatalf("delete: %s", res)
	}
	if res := svc.Delete(ctx, id, true); res.Kind != result.KindNotFound {
		t.Fatalf("delete twice: %s", res)
	}
	if res := svc.Start(ctx, id, nil); res.Kind != result.KindNotFound {
		t.Fatalf("start of deleted trip: %s", res)
	}
}

func TestStartRace(t *testing.T) {
	ctx := context.Background()
	h := startDB(t)
	svc := newService(h, false)

	d := testdb.MustDriver(t, h, "Гонщиков")
	v := testdb.MustVehicle(t, h, "0001")
	r := testdb.MustRoute(t, h, "R2", 100)

	for round := 0; round < 20; round++ {
		id := testdb.MustTrip(t, h, d, v, r, time.Now())

		var wg sync.WaitGroup
		results := make([]result.Result, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = svc.Start(ctx, id, nil)
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, res := range results {
			if res.OK() {
				wins++
			} else if res.Kind != result.KindConflict {
				t.Fatalf("loser must see conflict, got %s", res)
			}
		}
		if wins != 1 {
			t.Fatalf("round %d: %d winners", round, wins)
		}
		mustStatus(t, h, id, models.TripStarted)
		if res := svc.Cancel(ctx, id); !res.OK() {
			t.Fatalf("cancel: %s", res)
		}
	}
}

func TestCreateRules(t *testing.T) {
	ctx := context.Background()
	h := startDB(t)
	svc := newService(h, false)

	d := testdb.MustDriver(t, h, "Правилов")
	v := testdb.MustVehicle(t, h, "7777")
	r := testdb.MustRoute(t, h, "R3", 10)
	base := models.NewTrip{UserID: d, VehicleID: v, RouteID: r, WaybillNumber: "123456", QuantityDelivered: 5}

	bad := base
	bad.WaybillNumber = "12ab56"
	if res := svc.Create(ctx, bad); res.Kind != result.KindValidation {
		t.Fatalf("bad waybill: %s", res)
	}
	bad = base
	bad.QuantityDelivered = 0
	if res := svc.Create(ctx, bad); res.Kind != result.KindValidation {
		t.Fatalf("zero quantity: %s", res)
	}
	bad = base
	bad.VehicleID = 999999
	if res := svc.Create(ctx, bad); res.Kind != result.KindNotFound {
		t.Fatalf("missing vehicle: %s", res)
	}

	first := svc.Create(ctx, base)
	if !first.OK() {
		t.Fatalf("create: %s", first)
	}
	if res := svc.Create(ctx, base); res.Kind != result.KindConflict {
		t.Fatalf("second active trip must conflict: %s", res)
	}
	if res := svc.Cancel(ctx, first.Value); !res.OK() {
		t.Fatalf("cancel: %s", res)
	}
	trip, _ := db.GetTrip(ctx, h.Pool, first.Value)
	if trip.StartedAt != nil || trip.CompletedAt != nil {
		t.Fatalf("cancel must not stamp times: %+v", trip)
	}
	if res := svc.Create(ctx, base); !res.OK() {
		t.Fatalf("create after cancel: %s", res)
	}
}

func TestCreateRaceOneActive(t *testing.T) {
	ctx := context.Background()
	h := startDB(t)
	svc := newService(h, false)

	d := testdb.MustDriver(t, h, "Двойнов")
	v := testdb.MustVehicle(t, h, "2222")
	r := testdb.MustRoute(t, h, "R4", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := svc.Create(ctx, models.NewTrip{UserID: d, VehicleID: v, RouteID: r, WaybillNumber: "654321", QuantityDelivered: 1})
			if res.OK() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("%d concurrent creates succeeded", wins)
	}
}

func TestCalendarOutbox(t *testing.T) {
	ctx := context.Background()
	h := startDB(t)
	svc := newService(h, true)

	d := testdb.MustDriver(t, h, "Календарёв")
	v := testdb.MustVehicle(t, h, "3333")
	r := testdb.MustRoute(t, h, "R5", 10)

	id := testdb.MustTrip(t, h, d, v, r, time.Now())
	if res := svc.Start(ctx, id, nil); !res.OK() {
		t.Fatalf("start: %s", res)
	}
	if res := svc.Complete(ctx, id); !res.OK() {
		t.Fatalf("complete: %s", res)
	}
	if _, err := db.SetTripEventID(ctx, h.Pool, id, "evt-1"); err != nil {
		t.Fatal(err)
	}
	if res := svc.Delete(ctx, id, true); !res.OK() {
		t.Fatalf("delete: %s", res)
	}

	// с явным id события создание не ставится в очередь
	id2 := testdb.MustTrip(t, h, d, v, r, time.Now())
	evt := "evt-given"
	if res := svc.Start(ctx, id2, &evt); !res.OK() {
		t.Fatalf("start with event: %s", res)
	}

	entries, err := db.PendingCalendar(ctx, h.Pool, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []db.OutboxAction{db.OutboxCreate, db.OutboxUpdate, db.OutboxDelete}
	if len(entries) != len(want) {
		t.Fatalf("outbox: %+v", entries)
	}
	for i, e := range entries {
		if e.Action != want[i] {
			t.Fatalf("entry %d: %s, want %s", i, e.Action, want[i])
		}
	}
	if entries[2].EventID == nil || *entries[2].EventID != "evt-1" {
		t.Fatalf("delete entry must carry event id: %+v", entries[2])
	}
	got, _ := db.GetTrip(ctx, h.Pool, id2)
	if got.ExternalEventID == nil || *got.ExternalEventID != evt {
		t.Fatalf("event id not stored: %+v", got)
	}
}

func mustStatus(t *testing.T, h *testdb.DBHandle, id int64, want models.TripStatus) {
	t.Helper()
	trip, err := db.GetTrip(context.Background(), h.Pool, id)
	if err != nil {
		t.Fatal(err)
	}
	if trip.Status != want {
		t.Fatalf("trip %d: status %s, want %s", id, trip.Status, want)
	}
}
