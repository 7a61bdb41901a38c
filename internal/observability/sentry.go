// Package observability отправляет сбои сервиса в Sentry и пишет их в лог.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry — пустой dsn выключает отправку; возвращаемая функция сбрасывает буфер.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     "expedition@" + release,
		ServerName:  "expedition",
		BeforeSend:  dropCanceled,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// dropCanceled: отмена контекста при остановке сервиса сбоем не считается.
func dropCanceled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureOp — как CaptureErr, с тегом op: события группируются по операции.
func CaptureOp(op string, err error) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
		sentry.CaptureException(err)
	})
}
