// Package result описывает исход публичной операции ядра: успех или типизированный отказ
// с человекочитаемым сообщением. Фронтенды (веб, бот) смотрят только на Kind и Message.
package result

import "fmt"

type Kind string

const (
	KindOK         Kind = "ok"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindReferenced Kind = "referenced"
	KindInternal   Kind = "internal"
)

// Result — исход операции без полезной нагрузки.
type Result struct {
	Kind    Kind
	Message string
}

func (r Result) OK() bool { return r.Kind == KindOK }

func (r Result) String() string {
	if r.Message == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

// Of — исход операции с полезной нагрузкой. Value осмысленно только при OK().
type Of[T any] struct {
	Result
	Value T
}

func Success(msg string) Result { return Result{Kind: KindOK, Message: msg} }

func Validation(format string, args ...any) Result {
	return Result{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) Result {
	return Result{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) Result {
	return Result{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Referenced(format string, args ...any) Result {
	return Result{Kind: KindReferenced, Message: fmt.Sprintf(format, args...)}
}

// Internal — сбой хранилища или иной системный сбой. Подробности уходят в лог,
// вызывающему возвращается общее сообщение.
func Internal(msg string) Result {
	if msg == "" {
		msg = "внутренняя ошибка, попробуйте позже"
	}
	return Result{Kind: KindInternal, Message: msg}
}

func Value[T any](v T, msg string) Of[T] {
	return Of[T]{Result: Success(msg), Value: v}
}

func Fail[T any](r Result) Of[T] {
	return Of[T]{Result: r}
}
