package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/trips"
)

func (b *Bot) beginTrip(ctx context.Context, chatID int64, u *models.User) {
	if active := b.activeTrip(ctx, u); active != nil {
		b.reply(chatID, fmt.Sprintf("❌ У вас уже есть активный рейс #%d.\nЗавершите текущий рейс перед созданием нового.", active.ID),
			mainMenu(active))
		return
	}
	res := b.fleet.ListVehicles(ctx, true)
	if !res.OK() {
		b.reply(chatID, "❌ "+res.Message, nil)
		return
	}
	if len(res.Value) == 0 {
		b.reply(chatID, "❌ В системе нет доступных транспортных средств.\nОбратитесь к администратору.", nil)
		return
	}
	b.sessions.set(chatID, session{step: stepVehicle, vehicles: res.Value})
	b.reply(chatID, "🚛 Создание нового рейса\n\nВыберите ваше транспортное средство:", vehiclesKeyboard(res.Value))
}

// continueTrip — очередной шаг диалога создания рейса.
func (b *Bot) continueTrip(ctx context.Context, chatID int64, u *models.User, sess session, text string) {
	if isCancelText(text) {
		b.sessions.reset(chatID)
		b.reply(chatID, "❌ Создание рейса отменено.", b.menuFor(ctx, u))
		return
	}

	switch sess.step {
	case stepVehicle:
		v := matchVehicle(sess.vehicles, text)
		if v == nil {
			b.reply(chatID, "❌ Выберите транспортное средство из предложенных вариантов:", vehiclesKeyboard(sess.vehicles))
			return
		}
		sess.draft.vehicle = v
		sess.step = stepWaybill
		b.sessions.set(chatID, sess)
		b.reply(chatID, fmt.Sprintf("✅ Выбрано ТС: %s (%s)\n\nТеперь введите номер путевого листа:", v.Number, v.Model),
			tgbotapi.NewRemoveKeyboard(true))

	case stepWaybill:
		if res := trips.ValidateWaybill(text); !res.OK() {
			b.reply(chatID, "❌ "+res.Message+".\nВведите номер путевого листа:", nil)
			return
		}
		routes := b.fleet.ListRoutes(ctx, true)
		if !routes.OK() {
			b.reply(chatID, "❌ "+routes.Message, nil)
			return
		}
		if len(routes.Value) == 0 {
			b.sessions.reset(chatID)
			b.reply(chatID, "❌ В системе нет доступных маршрутов.\nОбратитесь к администратору.", b.menuFor(ctx, u))
			return
		}
		sess.draft.waybill = text
		sess.routes = routes.Value
		sess.step = stepRoute
		b.sessions.set(chatID, sess)
		b.reply(chatID, fmt.Sprintf("✅ Путевой лист: %s\n\nВыберите маршрут:", text), routesKeyboard(routes.Value))

	case stepRoute:
		r := matchRoute(sess.routes, text)
		if r == nil {
			b.reply(chatID, "❌ Выберите маршрут из предложенных вариантов:", routesKeyboard(sess.routes))
			return
		}
		sess.draft.route = r
		sess.step = stepQuantity
		b.sessions.set(chatID, sess)
		b.reply(chatID, fmt.Sprintf("✅ Выбран маршрут: №%s - %s\n\nВведите количество доставленного товара (в штуках):", r.Number, r.Name),
			tgbotapi.NewRemoveKeyboard(true))

	case stepQuantity:
		q, err := strconv.Atoi(text)
		if err != nil || !trips.ValidateQuantity(q).OK() {
			b.reply(chatID, "❌ Введите корректное количество товара (целое положительное число):", nil)
			return
		}
		sess.draft.quantity = q
		sess.step = stepConfirm
		b.sessions.set(chatID, sess)
		b.reply(chatID, b.summary(u, sess.draft), confirmKeyboard())

	case stepConfirm:
		if text != btnConfirm {
			b.reply(chatID, "❓ Пожалуйста, выберите один из предложенных вариантов:", confirmKeyboard())
			return
		}
		b.sessions.reset(chatID)
		d := sess.draft
		res := b.trips.Create(ctx, models.NewTrip{
			UserID:            u.ID,
			VehicleID:         d.vehicle.ID,
			RouteID:           d.route.ID,
			WaybillNumber:     d.waybill,
			QuantityDelivered: d.quantity,
		})
		if !res.OK() {
			b.reply(chatID, "❌ "+res.Message, b.menuFor(ctx, u))
			return
		}
		b.reply(chatID, fmt.Sprintf("✅ Рейс #%d создан успешно!\n\n📍 Статус: Ожидает начала поездки\n"+
			"⏰ Нажмите 'Начать поездку' когда отправляетесь по маршруту.", res.Value), b.menuFor(ctx, u))
	}
}

func (b *Bot) summary(u *models.User, d draft) string {
	return fmt.Sprintf("📋 Подтверждение рейса\n\n"+
		"👤 Водитель: %s %s\n"+
		"🚛 ТС: %s\n"+
		"📄 Путевой лист: %s\n"+
		"🗺 Маршрут: №%s - %s\n"+
		"📦 Количество: %d шт.\n"+
		"📅 Дата: %s\n\n"+
		"❗ После создания рейса нажмите 'Начать поездку', когда отправляетесь, "+
		"и 'Завершить поездку' по окончании.\n\n"+
		"Создать рейс?",
		u.FirstName, u.Surname, d.vehicle.Number, d.waybill, d.route.Number, d.route.Name, d.quantity,
		b.trips.Today().Format("02.01.2006"))
}
