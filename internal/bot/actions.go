package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/expedition-bot/internal/models"
)

const myTripsDays = 30

func (b *Bot) startTrip(ctx context.Context, chatID int64, u *models.User) {
	active := b.activeTrip(ctx, u)
	if active == nil {
		b.reply(chatID, "❌ У вас нет активного рейса для начала поездки.", mainMenu(nil))
		return
	}
	if !models.CanTransition(active.Status, models.TripStarted) {
		b.reply(chatID, fmt.Sprintf("❌ Рейс #%d уже начат.", active.ID), mainMenu(active))
		return
	}
	// событие календаря создаст синхронизатор
	res := b.trips.Start(ctx, active.ID, nil)
	if !res.OK() {
		b.reply(chatID, "❌ "+res.Message, b.menuFor(ctx, u))
		return
	}
	b.reply(chatID, fmt.Sprintf("🚀 Поездка начата!\n\n"+
		"📍 Рейс: #%d\n"+
		"🕐 Время начала: %s\n"+
		"🗺 Маршрут: №%s - %s\n"+
		"🚛 ТС: %s\n\n"+
		"⏰ Нажмите 'Завершить поездку' по прибытии.",
		active.ID, time.Now().In(b.loc).Format("15:04"), active.RouteNumber, active.RouteName, active.VehicleNumber),
		b.menuFor(ctx, u))
}

func (b *Bot) completeTrip(ctx context.Context, chatID int64, u *models.User) {
	active := b.activeTrip(ctx, u)
	if active == nil {
		b.reply(chatID, "❌ У вас нет активного рейса для завершения.", mainMenu(nil))
		return
	}
	if !models.CanTransition(active.Status, models.TripCompleted) {
		b.reply(chatID, fmt.Sprintf("❌ Рейс #%d ещё не начат.", active.ID), mainMenu(active))
		return
	}
	res := b.trips.Complete(ctx, active.ID)
	if !res.OK() {
		b.reply(chatID, "❌ "+res.Message, b.menuFor(ctx, u))
		return
	}

	duration := ""
	if done := b.trips.Get(ctx, active.ID); done.OK() && done.Value.StartedAt != nil && done.Value.CompletedAt != nil {
		duration = "\n⏱ Продолжительность: " + formatDuration(done.Value.CompletedAt.Sub(*done.Value.StartedAt))
	}
	b.reply(chatID, fmt.Sprintf("🏁 Поездка завершена!\n\n"+
		"📍 Рейс: #%d\n"+
		"🕐 Время завершения: %s%s\n"+
		"🗺 Маршрут: №%s - %s\n"+
		"🚛 ТС: %s\n"+
		"📦 Доставлено: %d шт.\n\n"+
		"✅ Данные переданы в систему отчетности.",
		active.ID, time.Now().In(b.loc).Format("15:04"), duration,
		active.RouteNumber, active.RouteName, active.VehicleNumber, active.QuantityDelivered),
		mainMenu(nil))
}

func (b *Bot) cancelTrip(ctx context.Context, chatID int64, u *models.User) {
	active := b.activeTrip(ctx, u)
	if active == nil {
		b.reply(chatID, "❌ У вас нет активного рейса для отмены.", mainMenu(nil))
		return
	}
	res := b.trips.Cancel(ctx, active.ID)
	if !res.OK() {
		b.reply(chatID, "❌ "+res.Message, b.menuFor(ctx, u))
		return
	}
	b.reply(chatID, fmt.Sprintf("❌ Рейс #%d отменён.", active.ID), b.menuFor(ctx, u))
}

func (b *Bot) myTrips(ctx context.Context, chatID int64, u *models.User) {
	to := b.trips.Today()
	from := to.AddDate(0, 0, -myTripsDays)
	res := b.reports.Report(ctx, models.ReportFilter{
		Range:  models.DateRange{From: from, To: to},
		UserID: u.ID,
	})
	if !res.OK() {
		b.reply(chatID, "❌ "+res.Message, b.menuFor(ctx, u))
		return
	}
	b.reply(chatID, formatMyTrips(res.Value), b.menuFor(ctx, u))
}

var statusEmoji = map[models.TripStatus]string{
	models.TripCreated:   "🟡",
	models.TripStarted:   "🔵",
	models.TripCompleted: "🟢",
	models.TripCancelled: "🔴",
}

// formatMyTrips — последние 10 рейсов и итог по завершённым.
func formatMyTrips(rows []models.ReportRow) string {
	if len(rows) == 0 {
		return fmt.Sprintf("📋 У вас нет рейсов за последние %d дней.", myTripsDays)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Ваши рейсы за последние %d дней:\n\n", myTripsDays)
	for i, r := range rows {
		if i == 10 {
			break
		}
		fmt.Fprintf(&sb, "%s Рейс #%d (%s)\n", statusEmoji[r.Status], r.ID, statusTitle(r.Status))
		fmt.Fprintf(&sb, "📅 %s\n", r.Date.Format("02.01.2006"))
		fmt.Fprintf(&sb, "🗺 Путевой лист: %s\n", r.WaybillNumber)
		fmt.Fprintf(&sb, "🚛 ТС: %s\n", r.VehicleNumber)
		fmt.Fprintf(&sb, "📦 Количество: %d шт.\n", r.Quantity)
		if r.DurationHours != nil {
			fmt.Fprintf(&sb, "⏱ Время: %s\n", formatDuration(time.Duration(*r.DurationHours*float64(time.Hour))))
		}
		sb.WriteString("\n")
	}

	completed, hours := 0, 0.0
	for _, r := range rows {
		if r.Status != models.TripCompleted {
			continue
		}
		completed++
		if r.DurationHours != nil {
			hours += *r.DurationHours
		}
	}
	fmt.Fprintf(&sb, "📊 Статистика за %d дней:\n✅ Завершено рейсов: %d\n", myTripsDays, completed)
	if hours > 0 {
		fmt.Fprintf(&sb, "⏱ Общее время: %.1f часов\n", hours)
	}
	return sb.String()
}

func statusTitle(st models.TripStatus) string {
	switch st {
	case models.TripCreated:
		return "Создан"
	case models.TripStarted:
		return "В пути"
	case models.TripCompleted:
		return "Завершён"
	case models.TripCancelled:
		return "Отменён"
	}
	return string(st)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dч %dмин", int(d.Hours()), int(d.Minutes())%60)
}
