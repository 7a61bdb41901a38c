package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Spok95/expedition-bot/internal/models"
)

const dateLayout = "2006-01-02"

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("некорректный идентификатор")
	}
	return id, nil
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("параметр %s: некорректный идентификатор", name)
	}
	return id, nil
}

func queryDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("параметр %s: ожидается дата ГГГГ-ММ-ДД", name)
	}
	return t, nil
}

func dateRange(r *http.Request) (models.DateRange, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return models.DateRange{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return models.DateRange{}, err
	}
	return models.DateRange{From: from, To: to}, nil
}

func reportFilter(r *http.Request) (models.ReportFilter, error) {
	var (
		f   models.ReportFilter
		err error
	)
	if f.Range, err = dateRange(r); err != nil {
		return f, err
	}
	f.Status = models.TripStatus(r.URL.Query().Get("status"))
	if f.UserID, err = queryID(r, "user_id"); err != nil {
		return f, err
	}
	if f.VehicleID, err = queryID(r, "vehicle_id"); err != nil {
		return f, err
	}
	if f.RouteID, err = queryID(r, "route_id"); err != nil {
		return f, err
	}
	return f, nil
}

// decode читает JSON-тело и прогоняет его через валидатор.
func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "некорректное тело запроса")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		validationError(w, r, err)
		return false
	}
	return true
}
