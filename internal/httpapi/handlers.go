package httpapi

import (
	"context"
	"net/http"

	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
)

type createDriverRequest struct {
	Surname    string `json:"surname" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	MiddleName string `json:"middle_name"`
	Role       string `json:"role" validate:"omitempty,oneof=driver admin"`
	Password   string `json:"password" validate:"omitempty,min=6"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required"`
}

type createVehicleRequest struct {
	Number   string  `json:"number" validate:"required"`
	Model    string  `json:"model" validate:"required"`
	Capacity float64 `json:"capacity" validate:"gte=0"`
}

type createRouteRequest struct {
	Number      string  `json:"number" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description"`
}

type priceRequest struct {
	Price *float64 `json:"price" validate:"required"`
}

// byID — общий каркас для POST/DELETE /{id}: разбор id и выдача результата.
func byID(fn func(ctx context.Context, id int64, r *http.Request) result.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeResult(w, r, fn(r.Context(), id, r), nil)
	}
}

func plain(fn func(ctx context.Context, id int64) result.Result) http.HandlerFunc {
	return byID(func(ctx context.Context, id int64, _ *http.Request) result.Result { return fn(ctx, id) })
}

func forced(fn func(ctx context.Context, id int64, force bool) result.Result) http.HandlerFunc {
	return byID(func(ctx context.Context, id int64, r *http.Request) result.Result {
		return fn(ctx, id, queryBool(r, "force"))
	})
}

// --- водители ---

func (a *api) listDrivers(w http.ResponseWriter, r *http.Request) {
	res := a.Lifecycle.ListDrivers(r.Context())
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) createDriver(w http.ResponseWriter, r *http.Request) {
	var req createDriverRequest
	if !a.decode(w, r, &req) {
		return
	}
	res := a.Credentials.CreateUser(r.Context(), models.NewUser{
		Surname:    req.Surname,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		Role:       models.Role(req.Role),
		Password:   req.Password,
	})
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) driverInfo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res := a.Stats.UserInfo(r.Context(), id)
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) deleteDriver(w http.ResponseWriter, r *http.Request) {
	forced(a.Lifecycle.DeleteUser)(w, r)
}

func (a *api) activateDriver(w http.ResponseWriter, r *http.Request) {
	plain(a.Lifecycle.ActivateDriver)(w, r)
}

func (a *api) deactivateDriver(w http.ResponseWriter, r *http.Request) {
	plain(a.Lifecycle.DeactivateDriver)(w, r)
}

func (a *api) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res := a.Credentials.Reset(r.Context(), id)
	writeResult(w, r, res.Result, map[string]string{"password": res.Value})
}

func (a *api) changePassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req passwordRequest
	if !a.decode(w, r, &req) {
		return
	}
	writeResult(w, r, a.Credentials.Change(r.Context(), id, req.Password), nil)
}

// --- транспорт ---

func (a *api) listVehicles(w http.ResponseWriter, r *http.Request) {
	res := a.Lifecycle.ListVehicles(r.Context(), queryBool(r, "active"))
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) createVehicle(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if !a.decode(w, r, &req) {
		return
	}
	res := a.Lifecycle.CreateVehicle(r.Context(), req.Number, req.Model, req.Capacity)
	writeResult(w, r, res.Result, map[string]int64{"id": res.Value})
}

func (a *api) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	forced(a.Lifecycle.DeleteVehicle)(w, r)
}

func (a *api) activateVehicle(w http.ResponseWriter, r *http.Request) {
	plain(a.Lifecycle.ActivateVehicle)(w, r)
}

func (a *api) deactivateVehicle(w http.ResponseWriter, r *http.Request) {
	plain(a.Lifecycle.DeactivateVehicle)(w, r)
}

// --- маршруты ---

func (a *api) listRoutes(w http.ResponseWriter, r *http.Request) {
	res := a.Lifecycle.ListRoutes(r.Context(), queryBool(r, "active"))
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) createRoute(w http.ResponseWriter, r *http.Request) {
	var req createRouteRequest
	if !a.decode(w, r, &req) {
		return
	}
	res := a.Lifecycle.CreateRoute(r.Context(), req.Number, req.Name, req.Price, req.Description)
	writeResult(w, r, res.Result, map[string]int64{"id": res.Value})
}

func (a *api) updateRoutePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req priceRequest
	if !a.decode(w, r, &req) {
		return
	}
	writeResult(w, r, a.Lifecycle.UpdateRoutePrice(r.Context(), id, *req.Price), nil)
}

func (a *api) deleteRoute(w http.ResponseWriter, r *http.Request) {
	forced(a.Lifecycle.DeleteRoute)(w, r)
}

func (a *api) activateRoute(w http.ResponseWriter, r *http.Request) {
	plain(a.Lifecycle.ActivateRoute)(w, r)
}

func (a *api) deactivateRoute(w http.ResponseWriter, r *http.Request) {
	plain(a.Lifecycle.DeactivateRoute)(w, r)
}

// --- рейсы и статистика ---

func (a *api) report(w http.ResponseWriter, r *http.Request) {
	f, err := reportFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res := a.Stats.Report(r.Context(), f)
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) cancelTrip(w http.ResponseWriter, r *http.Request) {
	plain(a.Trips.Cancel)(w, r)
}

// deleteTrip по умолчанию удаляет и событие календаря; ?keep_event=true оставляет его.
func (a *api) deleteTrip(w http.ResponseWriter, r *http.Request) {
	byID(func(ctx context.Context, id int64, r *http.Request) result.Result {
		return a.Trips.Delete(ctx, id, !queryBool(r, "keep_event"))
	})(w, r)
}

func (a *api) driverStats(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res := a.Stats.DriverStatistics(r.Context(), rng)
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) vehicleStats(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res := a.Stats.VehicleStatistics(r.Context(), rng)
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) routeStats(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res := a.Stats.RouteStatistics(r.Context(), rng)
	writeResult(w, r, res.Result, res.Value)
}

func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	res := a.Stats.Dashboard(r.Context())
	writeResult(w, r, res.Result, res.Value)
}
