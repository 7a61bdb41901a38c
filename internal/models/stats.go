package models

import "time"

// DateRange — включительный диапазон дат рейса; нулевая граница не ограничивает.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) HasFrom() bool { return !r.From.IsZero() }
func (r DateRange) HasTo() bool   { return !r.To.IsZero() }

type ReportFilter struct {
	Range     DateRange
	Status    TripStatus
	UserID    int64
	VehicleID int64
	RouteID   int64
}

// ReportRow — строка плоского отчёта по рейсам.
type ReportRow struct {
	ID                 int64      `json:"id"`
	Date               time.Time  `json:"date"`
	ServiceDescription string     `json:"service_description"`
	DriverName         string     `json:"driver_name"`
	Rate               float64    `json:"rate"`
	VATStatus          string     `json:"vat_status"`
	TotalAmount        float64    `json:"total_amount"`
	WaybillNumber      string     `json:"waybill_number"`
	Quantity           int        `json:"quantity"`
	VehicleNumber      string     `json:"vehicle_number"`
	VehicleModel       string     `json:"vehicle_model"`
	RouteNumber        string     `json:"route_number"`
	RouteName          string     `json:"route_name"`
	Status             TripStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	DurationHours      *float64   `json:"duration_hours,omitempty"`
}

// TripTotals — общие для всех разрезов метрики.
type TripTotals struct {
	TotalTrips       int     `json:"total_trips"`
	CompletedTrips   int     `json:"completed_trips"`
	CancelledTrips   int     `json:"cancelled_trips"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalQuantity    int64   `json:"total_quantity"`
	AvgDurationHours float64 `json:"avg_duration_hours"`
	CompletionRate   float64 `json:"completion_rate"`
}

type DriverStat struct {
	DriverID   int64  `json:"driver_id"`
	DriverName string `json:"driver_name"`
	TripTotals
}

type VehicleStat struct {
	VehicleID     int64  `json:"vehicle_id"`
	VehicleNumber string `json:"vehicle_number"`
	VehicleModel  string `json:"vehicle_model"`
	TripTotals
}

type RouteStat struct {
	RouteID     int64   `json:"route_id"`
	RouteNumber string  `json:"route_number"`
	RouteName   string  `json:"route_name"`
	RoutePrice  float64 `json:"route_price"`
	TripTotals
}

// PeriodSummary — сводка по рейсам за период для панели управления.
type PeriodSummary struct {
	Trips     int     `json:"trips"`
	Completed int     `json:"completed"`
	Revenue   float64 `json:"revenue"`
}

type Dashboard struct {
	Today            PeriodSummary `json:"today"`
	Week             PeriodSummary `json:"week"`
	Month            PeriodSummary `json:"month"`
	StartedTrips     int           `json:"active_trips"`
	AvgDurationHours float64       `json:"avg_duration_hours"`
	ActiveDrivers    int           `json:"active_drivers"`
	ActiveVehicles   int           `json:"active_vehicles"`
	ActiveRoutes     int           `json:"active_routes"`
	CompletionRate   float64       `json:"completion_rate"`
}
