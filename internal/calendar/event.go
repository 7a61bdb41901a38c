// Package calendar синхронизирует рейсы с Google Calendar через таблицу-очередь.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/expedition-bot/internal/models"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	colorPlanned   = "9"
	colorStarted   = "11"
	colorCompleted = "10"
	colorCancelled = "8"

	plannedDuration = 2 * time.Hour
	minDuration     = time.Hour

	sourceTag = "expedition_system"
)

// statusInfo — статус для заголовка события.
func statusInfo(t models.TripView) string {
	switch t.Status {
	case models.TripCompleted:
		s := "✅ ЗАВЕРШЁН"
		if t.StartedAt != nil && t.CompletedAt != nil {
			d := t.CompletedAt.Sub(*t.StartedAt)
			s += fmt.Sprintf(" (%dч %dмин)", int(d.Hours()), int(d.Minutes())%60)
		}
		return s
	case models.TripStarted:
		return "🚀 В ПУТИ"
	case models.TripCancelled:
		return "❌ ОТМЕНЁН"
	}
	return "⏰ ЗАПЛАНИРОВАН"
}

func colorFor(st models.TripStatus) string {
	switch st {
	case models.TripStarted:
		return colorStarted
	case models.TripCompleted:
		return colorCompleted
	case models.TripCancelled:
		return colorCancelled
	}
	return colorPlanned
}

func privateStatus(st models.TripStatus) string {
	if st == models.TripCreated {
		return "planned"
	}
	return string(st)
}

// eventWindow — фактическое время, если оно есть; иначе плановое.
func eventWindow(t models.TripView, now time.Time) (time.Time, time.Time) {
	start := now
	if t.StartedAt != nil {
		start = *t.StartedAt
	}
	end := start.Add(plannedDuration)
	if t.CompletedAt != nil {
		end = *t.CompletedAt
	}
	if !end.After(start) {
		end = start.Add(minDuration)
	}
	return start, end
}

func driverName(t models.TripView, u *models.User) string {
	if u != nil {
		return u.FullName()
	}
	return t.DriverName()
}

// BuildEvent — событие календаря по снимку рейса и водителя.
func BuildEvent(t models.TripView, u *models.User, loc *time.Location, now time.Time) *gcal.Event {
	if loc == nil {
		loc = time.UTC
	}
	start, end := eventWindow(t, now)
	start, end = start.In(loc), end.In(loc)
	name := driverName(t, u)
	info := statusInfo(t)

	var b strings.Builder
	fmt.Fprintf(&b, "🚛 Детали рейса\n")
	fmt.Fprintf(&b, "👤 Водитель: %s\n", name)
	fmt.Fprintf(&b, "🚗 ТС: %s %s\n", t.VehicleNumber, t.VehicleModel)
	fmt.Fprintf(&b, "📄 Путевой лист: %s\n", t.WaybillNumber)
	fmt.Fprintf(&b, "🗺️ Маршрут: №%s - %s\n", t.RouteNumber, t.RouteName)
	fmt.Fprintf(&b, "📦 Доставлено: %d шт.\n", t.QuantityDelivered)
	fmt.Fprintf(&b, "%s\n", info)
	fmt.Fprintf(&b, "🚀 Начало: %s\n", start.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "🏁 Окончание: %s", end.Format("02.01.2006 15:04"))

	driverID := t.UserID
	if u != nil {
		driverID = u.ID
	}

	return &gcal.Event{
		Summary:     fmt.Sprintf("Рейс #%s - %s [%s]", t.WaybillNumber, name, info),
		Description: b.String(),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()},
		ColorId:     colorFor(t.Status),
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: 15}},
			ForceSendFields: []string{"UseDefault"},
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				"source":         sourceTag,
				"trip_id":        strconv.FormatInt(t.ID, 10),
				"driver_id":      strconv.FormatInt(driverID, 10),
				"vehicle_number": t.VehicleNumber,
				"route_number":   t.RouteNumber,
				"waybill_number": t.WaybillNumber,
				"status":         privateStatus(t.Status),
				"updated_at":     now.In(loc).Format(time.RFC3339),
			},
		},
	}
}
