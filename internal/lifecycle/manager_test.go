//go:build testutil
// +build testutil

package lifecycle_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/lifecycle"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/Spok95/expedition-bot/internal/testutil/testdb"
	"go.uber.org/zap"
)

func TestDeleteVehicleWithTrips(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	m := lifecycle.NewManager(h.Pool, zap.NewNop(), 5*time.Second, true)

	d := testdb.MustDriver(t, h, "Шофёров")
	r := testdb.MustRoute(t, h, "R1", 100)
	created := m.CreateVehicle(ctx, "9745", "MAN TGX", 18.5)
	if !created.OK() {
		t.Fatalf("create vehicle: %s", created)
	}
	v := created.Value
	now := time.Now()
	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, testdb.MustTripIn(t, h, d, v, r, now, models.TripCompleted, &now, &now))
	}
	if _, err := db.SetTripEventID(ctx, h.Pool, ids[0], "evt-cascade"); err != nil {
		t.Fatal(err)
	}

	res := m.DeleteVehicle(ctx, v, false)
	if res.Kind != result.KindReferenced || !strings.Contains(res.Message, "3") {
		t.Fatalf("delete without force: %s", res)
	}
	if n, _ := db.CountTripsBy(ctx, h.Pool, models.EntityVehicle, v); n != 3 {
		t.Fatalf("trips must survive refused delete, got %d", n)
	}

	if res := m.DeleteVehicle(ctx, v, true); !res.OK() {
		t.Fatalf("force delete: %s", res)
	}
	if _, err := db.GetVehicle(ctx, h.Pool, v); err != db.ErrNotFound {
		t.Fatalf("vehicle still there: %v", err)
	}
	for _, id := range ids {
		if _, err := db.GetTrip(ctx, h.Pool, id); err != db.ErrNotFound {
			t.Fatalf("trip %d still there: %v", id, err)
		}
	}

	pending, err := db.PendingCalendar(ctx, h.Pool, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Action != db.OutboxDelete || *pending[0].EventID != "evt-cascade" {
		t.Fatalf("cascade must enqueue calendar delete: %+v", pending)
	}

	if res := m.DeleteVehicle(ctx, v, true); res.Kind != result.KindNotFound {
		t.Fatalf("delete missing vehicle: %s", res)
	}
}

func TestDeleteUserAndRoute(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	m := lifecycle.NewManager(h.Pool, zap.NewNop(), 5*time.Second, false)

	admin := testdb.MustAdmin(t, h, "Главный")
	for _, force := range []bool{false, true} {
		if res := m.DeleteUser(ctx, admin, force); res.OK() {
			t.Fatalf("admin deleted with force=%v", force)
		}
	}
	if _, err := db.GetUser(ctx, h.Pool, admin); err != nil {
		t.Fatalf("admin must stay: %v", err)
	}

	d := testdb.MustDriver(t, h, "Уходящий")
	v := testdb.MustVehicle(t, h, "1111")
	r := testdb.MustRoute(t, h, "R9", 50)
	testdb.MustTrip(t, h, d, v, r, time.Now())

	if res := m.DeleteUser(ctx, d, false); res.Kind != result.KindReferenced || !strings.Contains(res.Message, "1") {
		t.Fatalf("driver with a trip: %s", res)
	}
	if res := m.DeleteRoute(ctx, r, false); res.Kind != result.KindReferenced {
		t.Fatalf("route with a trip: %s", res)
	}
	if res := m.DeleteUser(ctx, d, true); !res.OK() {
		t.Fatalf("force delete driver: %s", res)
	}
	if res := m.DeleteRoute(ctx, r, false); !res.OK() {
		t.Fatalf("route without trips: %s", res)
	}
	if res := m.DeleteRoute(ctx, r, false); res.Kind != result.KindNotFound {
		t.Fatalf("route twice: %s", res)
	}
}

func TestActivationAndFleet(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	m := lifecycle.NewManager(h.Pool, zap.NewNop(), 5*time.Second, false)

	d := testdb.MustDriver(t, h, "Отпускной")
	admin := testdb.MustAdmin(t, h, "Шеф")
	v := testdb.MustVehicle(t, h, "5555")
	r := testdb.MustRoute(t, h, "R7", 10)
	tripID := testdb.MustTripIn(t, h, d, v, r, time.Now(), models.TripCancelled, nil, nil)

	if res := m.DeactivateDriver(ctx, d); !res.OK() {
		t.Fatal(res)
	}
	if res := m.DeactivateDriver(ctx, admin); res.Kind != result.KindNotFound {
		t.Fatalf("admin is not a driver: %s", res)
	}
	if res := m.DeactivateVehicle(ctx, v); !res.OK() {
		t.Fatal(res)
	}
	if res := m.DeactivateRoute(ctx, r); !res.OK() {
		t.Fatal(res)
	}
	if _, err := db.GetTrip(ctx, h.Pool, tripID); err != nil {
		t.Fatalf("history must stay: %v", err)
	}

	active := m.ListVehicles(ctx, true)
	if !active.OK() || len(active.Value) != 0 {
		t.Fatalf("inactive vehicle listed: %+v", active.Value)
	}
	if all := m.ListVehicles(ctx, false); !all.OK() || len(all.Value) != 1 {
		t.Fatalf("all vehicles: %+v", all.Value)
	}
	if res := m.ActivateVehicle(ctx, v); !res.OK() {
		t.Fatal(res)
	}
	if res := m.ActivateRoute(ctx, r); !res.OK() {
		t.Fatal(res)
	}
	if res := m.ActivateDriver(ctx, d); !res.OK() {
		t.Fatal(res)
	}
	if res := m.ActivateRoute(ctx, 999999); res.Kind != result.KindNotFound {
		t.Fatalf("missing route: %s", res)
	}

	if res := m.CreateVehicle(ctx, "5555", "Dup", 1); res.Kind != result.KindConflict {
		t.Fatalf("duplicate number: %s", res)
	}
	if res := m.CreateRoute(ctx, "R8", "Новый", -1, ""); res.Kind != result.KindValidation {
		t.Fatalf("negative price: %s", res)
	}
	if res := m.UpdateRoutePrice(ctx, r, 3200); !res.OK() {
		t.Fatal(res)
	}
	route, _ := db.GetRoute(ctx, h.Pool, r)
	if route.Price != 3200 {
		t.Fatalf("price: %v", route.Price)
	}
	if res := m.UpdateRoutePrice(ctx, r, -5); res.Kind != result.KindValidation {
		t.Fatalf("negative price update: %s", res)
	}
	if drivers := m.ListDrivers(ctx); !drivers.OK() || len(drivers.Value) != 1 {
		t.Fatalf("drivers: %+v", drivers.Value)
	}
}
