package ctxutil

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyChatID key = iota
	keyUserID
	keyOpName
)

// WithChatID /ChatID — прокидываем chatID в контекст
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, keyChatID, chatID)
}

func ChatID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(keyChatID).(int64)
	return id, ok
}

// WithUserID /UserID — кто выполняет операцию (водитель в боте, админ в API)
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(keyUserID).(int64)
	return id, ok
}

// WithOp /Op — имя операции (для логов)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

// LogFields — всё известное о вызывающем в виде полей zap.
func LogFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := ChatID(ctx); ok {
		fields = append(fields, zap.Int64("chat_id", id))
	}
	if id, ok := UserID(ctx); ok {
		fields = append(fields, zap.Int64("actor_id", id))
	}
	if op, ok := Op(ctx); ok {
		fields = append(fields, zap.String("caller_op", op))
	}
	return fields
}

// DefaultDBTimeout — если в конфиге таймаут не задан.
const DefaultDBTimeout = 5 * time.Second

// WithDBTimeout — таймаут для одной операции с БД; d<=0 — DefaultDBTimeout.
func WithDBTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultDBTimeout
	}
	if dl, ok := parent.Deadline(); ok {
		// если у родителя осталось меньше, берём остаток
		if remain := time.Until(dl); remain < d {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, d)
}
