// Package httpapi — административный HTTP API поверх сервисов ядра.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator"
	"go.uber.org/zap"

	"github.com/Spok95/expedition-bot/internal/credentials"
	"github.com/Spok95/expedition-bot/internal/metrics"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
)

type Credentials interface {
	Authenticate(ctx context.Context, surname, password string) result.Of[*models.User]
	CreateUser(ctx context.Context, u models.NewUser) result.Of[credentials.CreatedUser]
	Reset(ctx context.Context, userID int64) result.Of[string]
	Change(ctx context.Context, userID int64, newPassword string) result.Result
}

type Lifecycle interface {
	ActivateDriver(ctx context.Context, id int64) result.Result
	DeactivateDriver(ctx context.Context, id int64) result.Result
	ActivateVehicle(ctx context.Context, id int64) result.Result
	DeactivateVehicle(ctx context.Context, id int64) result.Result
	ActivateRoute(ctx context.Context, id int64) result.Result
	DeactivateRoute(ctx context.Context, id int64) result.Result
	DeleteUser(ctx context.Context, id int64, force bool) result.Result
	DeleteVehicle(ctx context.Context, id int64, force bool) result.Result
	DeleteRoute(ctx context.Context, id int64, force bool) result.Result
	CreateVehicle(ctx context.Context, number, model string, capacity float64) result.Of[int64]
	CreateRoute(ctx context.Context, number, name string, price float64, description string) result.Of[int64]
	UpdateRoutePrice(ctx context.Context, id int64, price float64) result.Result
	ListVehicles(ctx context.Context, onlyActive bool) result.Of[[]models.Vehicle]
	ListRoutes(ctx context.Context, onlyActive bool) result.Of[[]models.Route]
	ListDrivers(ctx context.Context) result.Of[[]models.User]
}

type Trips interface {
	Cancel(ctx context.Context, tripID int64) result.Result
	Delete(ctx context.Context, tripID int64, cascadeEvent bool) result.Result
}

type Stats interface {
	Report(ctx context.Context, f models.ReportFilter) result.Of[[]models.ReportRow]
	DriverStatistics(ctx context.Context, r models.DateRange) result.Of[[]models.DriverStat]
	VehicleStatistics(ctx context.Context, r models.DateRange) result.Of[[]models.VehicleStat]
	RouteStatistics(ctx context.Context, r models.DateRange) result.Of[[]models.RouteStat]
	Dashboard(ctx context.Context) result.Of[models.Dashboard]
	UserInfo(ctx context.Context, userID int64) result.Of[models.UserInfo]
}

// Pinger — проверка живости БД для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Log         *zap.Logger
	DB          Pinger
	Credentials Credentials
	Lifecycle   Lifecycle
	Trips       Trips
	Stats       Stats
}

type api struct {
	Deps
	validate *validator.Validate
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// NewRouter собирает все маршруты API.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	d.Log = d.Log.Named("http")
	a := &api{Deps: d, validate: newValidator()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLog(d.Log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(adminOnly(d.Credentials, d.Log))

		r.Get("/dashboard", a.dashboard)

		r.Route("/drivers", func(r chi.Router) {
			r.Get("/", a.listDrivers)
			r.Post("/", a.createDriver)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.driverInfo)
				r.Delete("/", a.deleteDriver)
				r.Post("/activate", a.activateDriver)
				r.Post("/deactivate", a.deactivateDriver)
				r.Post("/reset_password", a.resetPassword)
				r.Post("/change_password", a.changePassword)
			})
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", a.listVehicles)
			r.Post("/", a.createVehicle)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", a.deleteVehicle)
				r.Post("/activate", a.activateVehicle)
				r.Post("/deactivate", a.deactivateVehicle)
			})
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", a.listRoutes)
			r.Post("/", a.createRoute)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", a.deleteRoute)
				r.Put("/price", a.updateRoutePrice)
				r.Post("/activate", a.activateRoute)
				r.Post("/deactivate", a.deactivateRoute)
			})
		})

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", a.report)
			r.Post("/{id}/cancel", a.cancelTrip)
			r.Delete("/{id}", a.deleteTrip)
		})

		r.Route("/statistics", func(r chi.Router) {
			r.Get("/drivers", a.driverStats)
			r.Get("/vehicles", a.vehicleStats)
			r.Get("/routes", a.routeStats)
		})
	})
	return r
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := a.DB.Ping(ctx); err != nil {
		http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	metrics.ObserveDBPing(time.Since(t0))
	_, _ = w.Write([]byte("ok"))
}

type Server struct {
	srv *http.Server
	log *zap.Logger
}

// Start поднимает сервер в фоне. Остановить его — Shutdown.
func Start(addr string, d Deps) *Server {
	s := &Server{
		srv: &http.Server{Addr: addr, Handler: NewRouter(d), ReadHeaderTimeout: 5 * time.Second},
		log: d.Log,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
	return s
}

// Shutdown дожидается текущих запросов, но не дольше 3 секунд.
func (s *Server) Shutdown() error {
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.srv.Shutdown(shCtx)
}
