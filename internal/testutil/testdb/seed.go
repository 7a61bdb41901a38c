//go:build testutil
// +build testutil

package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
)

// Хеш не проверяется в сидах; тестам авторизации нужен настоящий.
const seedHash = "00:" + "0000000000000000000000000000000000000000000000000000000000000000"

func MustDriver(t *testing.T, h *DBHandle, surname string) int64 {
	t.Helper()
	id, err := db.CreateUser(context.Background(), h.Pool, models.NewUser{
		Surname: surname, FirstName: "Иван", Role: models.Driver,
	}, seedHash)
	if err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	return id
}

func MustAdmin(t *testing.T, h *DBHandle, surname string) int64 {
	t.Helper()
	id, err := db.CreateUser(context.Background(), h.Pool, models.NewUser{
		Surname: surname, FirstName: "Анна", Role: models.Admin,
	}, seedHash)
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return id
}

func MustVehicle(t *testing.T, h *DBHandle, number string) int64 {
	t.Helper()
	id, err := db.CreateVehicle(context.Background(), h.Pool, number, "Volvo FH", 20)
	if err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return id
}

func MustRoute(t *testing.T, h *DBHandle, number string, price float64) int64 {
	t.Helper()
	id, err := db.CreateRoute(context.Background(), h.Pool, number, "Рига — Елгава", price, "")
	if err != nil {
		t.Fatalf("seed route: %v", err)
	}
	return id
}

// MustTrip вставляет рейс напрямую, в обход проверок сервиса.
func MustTrip(t *testing.T, h *DBHandle, userID, vehicleID, routeID int64, date time.Time) int64 {
	t.Helper()
	id, err := db.InsertTrip(context.Background(), h.Pool, models.NewTrip{
		UserID: userID, VehicleID: vehicleID, RouteID: routeID,
		WaybillNumber: "100001", QuantityDelivered: 10, TripDate: date,
	})
	if err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	return id
}

// MustSetTrip переводит рейс в нужное состояние с заданными отметками времени.
func MustSetTrip(t *testing.T, h *DBHandle, tripID int64, status models.TripStatus, started, completed *time.Time) {
	t.Helper()
	_, err := h.Pool.Exec(context.Background(), `
		UPDATE trips SET status = $2, started_at = $3, completed_at = $4 WHERE id = $1
	`, tripID, string(status), started, completed)
	if err != nil {
		t.Fatalf("set trip: %v", err)
	}
}

// MustTripIn вставляет рейс сразу в нужном статусе, не трогая активный рейс водителя.
func MustTripIn(t *testing.T, h *DBHandle, userID, vehicleID, routeID int64, date time.Time,
	status models.TripStatus, started, completed *time.Time) int64 {
	t.Helper()
	var id int64
	err := h.Pool.QueryRow(context.Background(), `
		INSERT INTO trips (user_id, vehicle_id, route_id, waybill_number, quantity_delivered, trip_date,
			status, started_at, completed_at)
		VALUES ($1, $2, $3, '100001', 10, $4, $5, $6, $7)
		RETURNING id
	`, userID, vehicleID, routeID, date, string(status), started, completed).Scan(&id)
	if err != nil {
		t.Fatalf("seed trip in %s: %v", status, err)
	}
	return id
}
