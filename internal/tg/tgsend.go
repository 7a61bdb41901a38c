package tg

import (
	"errors"
	"net"
	"strings"

	"github.com/Spok95/expedition-bot/internal/observability"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender — то, что нужно от *tgbotapi.BotAPI для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ Sender = (*tgbotapi.BotAPI)(nil)

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "502") ||
		strings.Contains(s, "503") || strings.Contains(s, "timeout")
}

func Send(bot Sender, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return m, err
}

