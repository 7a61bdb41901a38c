package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/Spok95/expedition-bot/internal/trips"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	res := b.creds.UserByChat(ctx, chatID)
	if res.OK() && res.Value.IsActive && res.Value.Role == models.Driver {
		u := res.Value
		active := b.activeTrip(ctx, u)
		b.reply(chatID, welcome(fmt.Sprintf("Добро пожаловать, %s %s!", u.FirstName, u.Surname), active), mainMenu(active))
		return
	}
	if !res.OK() && res.Kind != result.KindNotFound {
		b.reply(chatID, "❌ "+res.Message, nil)
		return
	}
	b.sessions.set(chatID, session{step: stepSurname})
	b.reply(chatID, "🚛 Добро пожаловать в систему экспедирования!\n\nДля входа в систему введите вашу фамилию:",
		tgbotapi.NewRemoveKeyboard(true))
}

func (b *Bot) onSurname(_ context.Context, chatID int64, text string) {
	if text == "" {
		b.reply(chatID, "Введите вашу фамилию:", nil)
		return
	}
	b.sessions.set(chatID, session{step: stepPassword, surname: text})
	b.reply(chatID, fmt.Sprintf("Фамилия: %s\nТеперь введите ваш пароль:", text), nil)
}

func (b *Bot) onPassword(ctx context.Context, chatID int64, sess session, password string) {
	res := b.creds.Authenticate(ctx, sess.surname, password)
	if res.Kind == result.KindInternal {
		b.reply(chatID, "❌ "+res.Message, nil)
		return
	}
	if !res.OK() || res.Value.Role != models.Driver {
		b.sessions.set(chatID, session{step: stepSurname})
		b.reply(chatID, "❌ Неверная фамилия или пароль!\nПопробуйте еще раз.\n\nВведите вашу фамилию:", nil)
		return
	}
	u := res.Value

	link := b.creds.LinkExternalChat(ctx, u.ID, chatID)
	if link.Kind == result.KindConflict {
		// пароль подтверждён в этом чате, поэтому привязку переносим сюда
		link = b.creds.RelinkExternalChat(ctx, u.ID, chatID)
	}
	if !link.OK() {
		b.log.Warn("chat link failed", zap.Int64("user_id", u.ID), zap.Int64("chat_id", chatID), zap.String("result", link.String()))
		b.sessions.reset(chatID)
		b.reply(chatID, "❌ "+link.Message, nil)
		return
	}
	b.sessions.reset(chatID)
	b.log.Info("driver logged in", zap.Int64("user_id", u.ID), zap.Int64("chat_id", chatID))

	active := b.activeTrip(ctx, u)
	b.reply(chatID, welcome(fmt.Sprintf("✅ Авторизация успешна!\nДобро пожаловать, %s %s!", u.FirstName, u.Surname), active), mainMenu(active))
}

func welcome(head string, active *models.TripView) string {
	msg := head
	if active != nil {
		msg += fmt.Sprintf("\n\n📍 У вас есть активный рейс #%d (%s)", active.ID, trips.StatusLabel(active.Status))
	}
	return msg + "\n\nИспользуйте кнопки меню для навигации."
}
