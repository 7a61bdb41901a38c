// Package bot — телеграм-бот водителя: вход по фамилии и паролю, создание рейса
// и его проведение по статусам.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/metrics"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/observability"
	"github.com/Spok95/expedition-bot/internal/result"
	"github.com/Spok95/expedition-bot/internal/tg"
)

type Credentials interface {
	Authenticate(ctx context.Context, surname, password string) result.Of[*models.User]
	LinkExternalChat(ctx context.Context, userID, chatID int64) result.Result
	RelinkExternalChat(ctx context.Context, userID, chatID int64) result.Result
	UserByChat(ctx context.Context, chatID int64) result.Of[*models.User]
}

type Trips interface {
	Create(ctx context.Context, in models.NewTrip) result.Of[int64]
	Start(ctx context.Context, tripID int64, eventID *string) result.Result
	Complete(ctx context.Context, tripID int64) result.Result
	Cancel(ctx context.Context, tripID int64) result.Result
	ActiveTripFor(ctx context.Context, userID int64) result.Of[*models.TripView]
	Get(ctx context.Context, tripID int64) result.Of[*models.TripView]
	Today() time.Time
}

type Fleet interface {
	ListVehicles(ctx context.Context, onlyActive bool) result.Of[[]models.Vehicle]
	ListRoutes(ctx context.Context, onlyActive bool) result.Of[[]models.Route]
}

type Reports interface {
	Report(ctx context.Context, f models.ReportFilter) result.Of[[]models.ReportRow]
}

type Bot struct {
	api      tg.Sender
	creds    Credentials
	trips    Trips
	fleet    Fleet
	reports  Reports
	log      *zap.Logger
	loc      *time.Location
	sessions *sessions
	limiter  *chatLimiter
}

func New(api tg.Sender, creds Credentials, trips Trips, fleet Fleet, reports Reports, log *zap.Logger, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.UTC
	}
	return &Bot{
		api:      api,
		creds:    creds,
		trips:    trips,
		fleet:    fleet,
		reports:  reports,
		log:      log.Named("bot"),
		loc:      loc,
		sessions: newSessions(),
		limiter:  newChatLimiter(),
	}
}

// Run обрабатывает апдейты до закрытия канала или отмены ctx и дожидается
// уже принятых. Чаты обслуживаются параллельно, апдейты одного чата идут
// в порядке прихода.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	q := newChatQueues(func(msg *tgbotapi.Message) { b.HandleMessage(ctx, msg) })
	defer q.wait()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message == nil || upd.Message.Chat == nil {
				continue
			}
			metrics.BotUpdates.Inc()
			if !q.push(upd.Message) {
				metrics.HandlerErrors.Inc()
				b.log.Warn("chat queue full, update dropped", zap.Int64("chat_id", upd.Message.Chat.ID))
			}
		}
	}
}

func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	unlock := b.limiter.lock(chatID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.Inc()
			b.log.Error("panic in handler", zap.Any("panic", r), zap.Int64("chat_id", chatID))
			observability.CaptureOp("bot.HandleMessage", fmt.Errorf("panic: %v", r))
		}
	}()

	ctx = ctxutil.WithChatID(ctx, chatID)
	text := strings.TrimSpace(msg.Text)
	sess := b.sessions.get(chatID)
	ctx = ctxutil.WithOp(ctx, "bot."+sess.step.String())

	if text == "/start" {
		b.sessions.reset(chatID)
		b.handleStart(ctx, chatID)
		return
	}

	switch sess.step {
	case stepSurname:
		b.onSurname(ctx, chatID, text)
		return
	case stepPassword:
		b.onPassword(ctx, chatID, sess, text)
		return
	}

	u := b.currentUser(ctx, chatID)
	if u == nil {
		return
	}
	ctx = ctxutil.WithUserID(ctx, u.ID)

	if sess.step != stepIdle {
		b.continueTrip(ctx, chatID, u, sess, text)
		return
	}

	switch text {
	case btnNewTrip, "/trip":
		b.beginTrip(ctx, chatID, u)
	case btnStart:
		b.startTrip(ctx, chatID, u)
	case btnComplete:
		b.completeTrip(ctx, chatID, u)
	case btnCancel:
		b.cancelTrip(ctx, chatID, u)
	case btnMyTrips:
		b.myTrips(ctx, chatID, u)
	case btnHelp, "/help":
		b.reply(chatID, helpText, nil)
	default:
		b.reply(chatID, "❓ Неизвестная команда.\nИспользуйте кнопки меню или команду /help для справки.", b.menuFor(ctx, u))
	}
}

// currentUser — водитель этого чата; иначе просим войти и возвращаем nil.
func (b *Bot) currentUser(ctx context.Context, chatID int64) *models.User {
	res := b.creds.UserByChat(ctx, chatID)
	if !res.OK() {
		if res.Kind == result.KindNotFound {
			b.reply(chatID, "❌ Вы не авторизованы в системе.\nИспользуйте команду /start для входа.", tgbotapi.NewRemoveKeyboard(true))
		} else {
			b.reply(chatID, "❌ "+res.Message, nil)
		}
		return nil
	}
	u := res.Value
	if !u.IsActive || u.Role != models.Driver {
		b.sessions.reset(chatID)
		b.reply(chatID, "🚫 Доступ к боту закрыт. Обратитесь к администратору.", tgbotapi.NewRemoveKeyboard(true))
		return nil
	}
	return u
}

// menuFor — главное меню с учётом активного рейса водителя.
func (b *Bot) menuFor(ctx context.Context, u *models.User) tgbotapi.ReplyKeyboardMarkup {
	return mainMenu(b.activeTrip(ctx, u))
}

func (b *Bot) activeTrip(ctx context.Context, u *models.User) *models.TripView {
	res := b.trips.ActiveTripFor(ctx, u.ID)
	if !res.OK() || res.Value == nil || !res.Value.Status.Active() {
		return nil
	}
	return res.Value
}

func (b *Bot) reply(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := tg.Send(b.api, msg); err != nil {
		metrics.HandlerErrors.Inc()
		b.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

const helpText = "🆘 Справка по боту\n\n" +
	"📋 Доступные команды:\n" +
	"/start - Авторизация в системе\n" +
	"/trip - Создать новый рейс\n" +
	"/help - Показать эту справку\n\n" +
	"🔄 Процесс работы с рейсом:\n" +
	"1. Создайте рейс (выбор ТС, маршрута, количества)\n" +
	"2. Нажмите 'Начать поездку' когда отправляетесь\n" +
	"3. Нажмите 'Завершить поездку' по прибытии\n" +
	"4. Данные автоматически добавляются в календарь\n\n" +
	"❓ При возникновении проблем обратитесь к администратору."
