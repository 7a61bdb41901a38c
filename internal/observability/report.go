package observability

import (
	"context"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"go.uber.org/zap"
)

// Report — системная ошибка операции: один раз в лог с полями вызова и в Sentry.
func Report(ctx context.Context, log *zap.Logger, op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	fields = append(fields, ctxutil.LogFields(ctx)...)
	log.Error("operation failed", fields...)
	CaptureOp(op, err)
}
