package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/metrics"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/Spok95/expedition-bot/internal/result"
)

// requestLog пишет строку на запрос и считает запросы по шаблону маршрута.
func requestLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t0 := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				return
			}
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", code),
				zap.Duration("took", time.Since(t0)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// adminOnly — Basic auth по фамилии и паролю; пускаем только администраторов.
func adminOnly(creds Credentials, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			surname, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="expedition", charset="UTF-8"`)
				writeError(w, r, http.StatusUnauthorized, "требуется авторизация")
				return
			}
			res := creds.Authenticate(r.Context(), surname, password)
			if !res.OK() {
				if res.Kind != result.KindNotFound {
					writeResult(w, r, res.Result, nil)
					return
				}
				log.Warn("admin auth failed", zap.String("surname", surname),
					zap.String("request_id", middleware.GetReqID(r.Context())))
				w.Header().Set("WWW-Authenticate", `Basic realm="expedition", charset="UTF-8"`)
				writeError(w, r, http.StatusUnauthorized, res.Message)
				return
			}
			if res.Value.Role != models.Admin {
				writeError(w, r, http.StatusForbidden, "доступ только для администратора")
				return
			}
			ctx := ctxutil.WithUserID(r.Context(), res.Value.ID)
			ctx = ctxutil.WithOp(ctx, r.Method+" "+r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
