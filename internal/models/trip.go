package models

import "time"

type TripStatus string

const (
	TripCreated   TripStatus = "created"
	TripStarted   TripStatus = "started"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripCreated, TripStarted, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Terminal — из завершённого или отменённого рейса переходов нет.
func (s TripStatus) Terminal() bool { return s == TripCompleted || s == TripCancelled }

// Active — рейс «на руках» у водителя.
func (s TripStatus) Active() bool { return s == TripCreated || s == TripStarted }

// CanTransition перечисляет все допустимые переходы; других нет.
// Те же правила стоят в условиях WHERE у StartTrip, CompleteTrip и CancelTrip в db/trips.go.
func CanTransition(from, to TripStatus) bool {
	switch from {
	case TripCreated:
		return to == TripStarted || to == TripCancelled
	case TripStarted:
		return to == TripCompleted || to == TripCancelled
	}
	return false
}

type Trip struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"user_id"`
	VehicleID         int64      `db:"vehicle_id" json:"vehicle_id"`
	RouteID           int64      `db:"route_id" json:"route_id"`
	WaybillNumber     string     `db:"waybill_number" json:"waybill_number"`
	QuantityDelivered int        `db:"quantity_delivered" json:"quantity_delivered"`
	TripDate          time.Time  `db:"trip_date" json:"trip_date"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	Status            TripStatus `db:"status" json:"status"`
	StartedAt         *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ExternalEventID   *string    `db:"external_event_id" json:"external_event_id,omitempty"`
}

// TripView — рейс вместе с отображаемыми полями водителя, ТС и маршрута.
type TripView struct {
	Trip
	Surname       string  `json:"surname"`
	FirstName     string  `json:"first_name"`
	MiddleName    string  `json:"middle_name,omitempty"`
	VehicleNumber string  `json:"vehicle_number"`
	VehicleModel  string  `json:"vehicle_model"`
	RouteNumber   string  `json:"route_number"`
	RouteName     string  `json:"route_name"`
	RoutePrice    float64 `json:"route_price"`
}

func (v TripView) DriverName() string { return FullName(v.Surname, v.FirstName, v.MiddleName) }

// NewTrip — вход операции создания рейса. Нулевая TripDate означает «сегодня».
type NewTrip struct {
	UserID            int64
	VehicleID         int64
	RouteID           int64
	WaybillNumber     string
	QuantityDelivered int
	TripDate          time.Time
}
