package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/expedition-bot/internal/credentials"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
)

type credsMock struct{ mock.Mock }

func (m *credsMock) Authenticate(ctx context.Context, surname, password string) result.Of[*models.User] {
	args := m.Called(surname, password)
	return args.Get(0).(result.Of[*models.User])
}

func (m *credsMock) CreateUser(ctx context.Context, u models.NewUser) result.Of[credentials.CreatedUser] {
	return m.Called(u).Get(0).(result.Of[credentials.CreatedUser])
}

func (m *credsMock) Reset(ctx context.Context, id int64) result.Of[string] {
	return m.Called(id).Get(0).(result.Of[string])
}

func (m *credsMock) Change(ctx context.Context, id int64, pw string) result.Result {
	return m.Called(id, pw).Get(0).(result.Result)
}

type lifecycleMock struct {
	mock.Mock
	Lifecycle
}

func (m *lifecycleMock) DeleteVehicle(ctx context.Context, id int64, force bool) result.Result {
	return m.Called(id, force).Get(0).(result.Result)
}

func (m *lifecycleMock) CreateRoute(ctx context.Context, number, name string, price float64, desc string) result.Of[int64] {
	return m.Called(number, name, price, desc).Get(0).(result.Of[int64])
}

func (m *lifecycleMock) UpdateRoutePrice(ctx context.Context, id int64, price float64) result.Result {
	return m.Called(id, price).Get(0).(result.Result)
}

type tripsMock struct{ mock.Mock }

func (m *tripsMock) Cancel(ctx context.Context, id int64) result.Result {
	return m.Called(id).Get(0).(result.Result)
}

func (m *tripsMock) Delete(ctx context.Context, id int64, cascade bool) result.Result {
	return m.Called(id, cascade).Get(0).(result.Result)
}

type statsMock struct {
	mock.Mock
	Stats
}

func (m *statsMock) Report(ctx context.Context, f models.ReportFilter) result.Of[[]models.ReportRow] {
	return m.Called(f).Get(0).(result.Of[[]models.ReportRow])
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixture struct {
	creds     *credsMock
	lifecycle *lifecycleMock
	trips     *tripsMock
	stats     *statsMock
	handler   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{creds: new(credsMock), lifecycle: new(lifecycleMock), trips: new(tripsMock), stats: new(statsMock)}
	admin := &models.User{ID: 1, Surname: "Админов", Role: models.Admin}
	driver := &models.User{ID: 2, Surname: "Шофёров", Role: models.Driver}
	f.creds.On("Authenticate", "Админов", "secret1").Return(result.Value(admin, "")).Maybe()
	f.creds.On("Authenticate", "Шофёров", "secret2").Return(result.Value(driver, "")).Maybe()
	f.creds.On("Authenticate", mock.Anything, mock.Anything).
		Return(result.Fail[*models.User](result.NotFound("неверная фамилия или пароль"))).Maybe()

	f.handler = NewRouter(Deps{
		DB:          pingFunc(func(context.Context) error { return nil }),
		Credentials: f.creds,
		Lifecycle:   f.lifecycle,
		Trips:       f.trips,
		Stats:       f.stats,
	})
	return f
}

func (f *fixture) do(method, target, body string, user, pass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	down := NewRouter(Deps{DB: pingFunc(func(context.Context) error { return errors.New("refused") })})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/trips", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = f.do(http.MethodGet, "/api/trips", "", "Админов", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/trips", "", "Шофёров", "secret2")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResultStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		res  result.Result
		want int
	}{
		{"ok", result.Success("удалено"), http.StatusOK},
		{"referenced", result.Referenced("есть 3 рейсов"), http.StatusConflict},
		{"not found", result.NotFound("нет"), http.StatusNotFound},
		{"internal", result.Internal(""), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.lifecycle.On("DeleteVehicle", int64(7), false).Return(tt.res).Once()
			rec := f.do(http.MethodDelete, "/api/vehicles/7", "", "Админов", "secret1")
			assert.Equal(t, tt.want, rec.Code)
			resp := decodeResponse(t, rec)
			assert.Equal(t, string(tt.res.Kind), resp.Kind)
			f.lifecycle.AssertExpectations(t)
		})
	}
}

func TestForceDelete(t *testing.T) {
	f := newFixture(t)
	f.lifecycle.On("DeleteVehicle", int64(7), true).Return(result.Success("удалено вместе с рейсами: 3")).Once()

	rec := f.do(http.MethodDelete, "/api/vehicles/7?force=true", "", "Админов", "secret1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "удалено вместе с рейсами: 3", decodeResponse(t, rec).Message)
}

func TestCreateRouteValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/routes", `{"number":"12"}`, "Админов", "secret1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Error, "name")

	rec = f.do(http.MethodPost, "/api/routes", `{"number":"12","name":"Огре","price":-1}`, "Админов", "secret1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/routes", `not json`, "Админов", "secret1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.lifecycle.On("CreateRoute", "12", "Огре", 150.5, "").Return(result.Value(int64(4), "")).Once()
	rec = f.do(http.MethodPost, "/api/routes", `{"number":"12","name":"Огре","price":150.5}`, "Админов", "secret1")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.EqualValues(t, 4, data["id"])
}

func TestUpdateRoutePriceRequiresPrice(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPut, "/api/routes/3/price", `{}`, "Админов", "secret1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.lifecycle.On("UpdateRoutePrice", int64(3), 0.0).Return(result.Success("")).Once()
	rec = f.do(http.MethodPut, "/api/routes/3/price", `{"price":0}`, "Админов", "secret1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportFilters(t *testing.T) {
	f := newFixture(t)
	want := models.ReportFilter{
		Range:  models.DateRange{From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		Status: models.TripCompleted,
		UserID: 2,
	}
	f.stats.On("Report", want).Return(result.Value([]models.ReportRow{{ID: 1}}, "")).Once()

	rec := f.do(http.MethodGet, "/api/trips?from=2025-03-01&to=2025-03-31&status=completed&user_id=2", "", "Админов", "secret1")
	require.Equal(t, http.StatusOK, rec.Code)
	f.stats.AssertExpectations(t)

	rec = f.do(http.MethodGet, "/api/trips?from=01.03.2025", "", "Админов", "secret1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodGet, "/api/trips?vehicle_id=abc", "", "Админов", "secret1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTripEndpoints(t *testing.T) {
	f := newFixture(t)
	f.trips.On("Cancel", int64(5)).Return(result.Conflict("рейс уже завершён")).Once()
	f.trips.On("Delete", int64(5), true).Return(result.Success("")).Once()
	f.trips.On("Delete", int64(6), false).Return(result.Success("")).Once()

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/trips/5/cancel", "", "Админов", "secret1").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/api/trips/5", "", "Админов", "secret1").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/api/trips/6?keep_event=true", "", "Админов", "secret1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/trips/x", "", "Админов", "secret1").Code)
	f.trips.AssertExpectations(t)
}

func TestPasswordEndpoints(t *testing.T) {
	f := newFixture(t)
	f.creds.On("Reset", int64(2)).Return(result.Value("Xy12abCD", "")).Once()
	f.creds.On("Change", int64(2), "abc").Return(result.Validation("пароль короче 6 символов")).Once()

	rec := f.do(http.MethodPost, "/api/drivers/2/reset_password", "", "Админов", "secret1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Xy12abCD", decodeResponse(t, rec).Data.(map[string]any)["password"])

	rec = f.do(http.MethodPost, "/api/drivers/2/change_password", `{"password":"abc"}`, "Админов", "secret1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.creds.AssertExpectations(t)
}

func TestStartAndShutdown(t *testing.T) {
	srv := Start("127.0.0.1:0", Deps{DB: pingFunc(func(context.Context) error { return nil })})
	require.NotNil(t, srv)
	assert.NoError(t, srv.Shutdown())
}
