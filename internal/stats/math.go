package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/Spok95/expedition-bot/internal/models"
)

const VATStatus = "Без НДС"

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func round2(v float64) float64 { return round(v, 2) }
func round1(v float64) float64 { return round(v, 1) }

// CompletionRate — completed / max(total, 1) × 100, до десятых.
func CompletionRate(completed, total int) float64 {
	if total < 1 {
		total = 1
	}
	return round1(float64(completed) / float64(total) * 100)
}

// DurationHours есть только при обеих отметках времени.
func DurationHours(started, completed *time.Time) *float64 {
	if started == nil || completed == nil {
		return nil
	}
	h := round2(completed.Sub(*started).Hours())
	return &h
}

func ServiceDescription(routeNumber string) string {
	return fmt.Sprintf("Услуги грузоперевозки, маршрут №%s", routeNumber)
}

// ReportRowOf — строка отчёта; ставка и сумма строки равны цене маршрута.
func ReportRowOf(v models.TripView) models.ReportRow {
	return models.ReportRow{
		ID:                 v.ID,
		Date:               v.TripDate,
		ServiceDescription: ServiceDescription(v.RouteNumber),
		DriverName:         v.DriverName(),
		Rate:               v.RoutePrice,
		VATStatus:          VATStatus,
		TotalAmount:        v.RoutePrice,
		WaybillNumber:      v.WaybillNumber,
		Quantity:           v.QuantityDelivered,
		VehicleNumber:      v.VehicleNumber,
		VehicleModel:       v.VehicleModel,
		RouteNumber:        v.RouteNumber,
		RouteName:          v.RouteName,
		Status:             v.Status,
		CreatedAt:          v.CreatedAt,
		StartedAt:          v.StartedAt,
		CompletedAt:        v.CompletedAt,
		DurationHours:      DurationHours(v.StartedAt, v.CompletedAt),
	}
}

func finalize(t *models.TripTotals) {
	t.TotalRevenue = round2(t.TotalRevenue)
	t.AvgDurationHours = round2(t.AvgDurationHours)
	t.CompletionRate = CompletionRate(t.CompletedTrips, t.TotalTrips)
}
