package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/Spok95/expedition-bot/internal/result"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response — единый конверт ответа API.
type Response struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func statusFor(k result.Kind) int {
	switch k {
	case result.KindOK:
		return http.StatusOK
	case result.KindValidation:
		return http.StatusBadRequest
	case result.KindNotFound:
		return http.StatusNotFound
	case result.KindConflict, result.KindReferenced:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeResult отдаёт исход операции ядра; data пишется только при успехе.
func writeResult(w http.ResponseWriter, r *http.Request, res result.Result, data any) {
	render.Status(r, statusFor(res.Kind))
	if !res.OK() {
		render.JSON(w, r, Response{Status: StatusError, Kind: string(res.Kind), Error: res.Message})
		return
	}
	render.JSON(w, r, Response{Status: StatusOK, Kind: string(res.Kind), Message: res.Message, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, Response{Status: StatusError, Error: msg})
}

func validationError(w http.ResponseWriter, r *http.Request, err error) {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("поле %s обязательно", e.Field()))
		case "numeric":
			msgs = append(msgs, fmt.Sprintf("поле %s должно содержать только цифры", e.Field()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("поле %s меньше допустимого (%s)", e.Field(), e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("поле %s должно быть одним из: %s", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("поле %s заполнено неверно", e.Field()))
		}
	}
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Response{Status: StatusError, Kind: string(result.KindValidation), Error: strings.Join(msgs, ", ")})
}
