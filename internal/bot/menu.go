package bot

import (
	"fmt"

	"github.com/Spok95/expedition-bot/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnNewTrip  = "➕ Создать рейс"
	btnStart    = "🚀 Начать поездку"
	btnComplete = "🏁 Завершить поездку"
	btnCancel   = "❌ Отменить рейс"
	btnMyTrips  = "📋 Мои рейсы"
	btnHelp     = "ℹ️ Справка"

	btnConfirm = "✅ Подтвердить"
	btnAbort   = "❌ Отменить"
)

// mainMenu зависит от активного рейса: создать новый можно, только когда его нет.
func mainMenu(active *models.TripView) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	switch {
	case active == nil:
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnNewTrip)))
	case active.Status == models.TripCreated:
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStart),
			tgbotapi.NewKeyboardButton(btnCancel),
		))
	case active.Status == models.TripStarted:
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnComplete),
			tgbotapi.NewKeyboardButton(btnCancel),
		))
	}
	rows = append(rows,
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMyTrips)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnHelp)),
	)
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func vehicleButton(v models.Vehicle) string { return fmt.Sprintf("🚛 %s (%s)", v.Number, v.Model) }

// цену маршрута водителю не показываем
func routeButton(r models.Route) string {
	return fmt.Sprintf("🗺 Маршрут №%s - %s", r.Number, r.Name)
}

func vehiclesKeyboard(vs []models.Vehicle) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(vs)+1)
	for _, v := range vs {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(vehicleButton(v))))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAbort)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func routesKeyboard(rs []models.Route) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(rs)+1)
	for _, r := range rs {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(routeButton(r))))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAbort)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnConfirm)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAbort)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// matchVehicle — сначала точный текст кнопки, затем номер внутри текста.
func matchVehicle(vs []models.Vehicle, text string) *models.Vehicle {
	for i := range vs {
		if vehicleButton(vs[i]) == text {
			return &vs[i]
		}
	}
	for i := range vs {
		if vs[i].Number != "" && containsWord(text, vs[i].Number) {
			return &vs[i]
		}
	}
	return nil
}

func matchRoute(rs []models.Route, text string) *models.Route {
	for i := range rs {
		if routeButton(rs[i]) == text {
			return &rs[i]
		}
	}
	for i := range rs {
		if rs[i].Number != "" && containsWord(text, "№"+rs[i].Number) {
			return &rs[i]
		}
	}
	return nil
}
