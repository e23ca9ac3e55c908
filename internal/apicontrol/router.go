// Package apicontrol exposes the WCM core over HTTP: network management,
// connect/scan/uAP/power-save operations, and status/event queries, each a
// thin translation to the corresponding wcm.Manager method. Every route
// requires a bearer token except GET /v1/status and GET /v1/events.
package apicontrol

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcm"
)

// NewRouter assembles the full control-plane route tree against mgr. secret
// is the bearer-token signing key; an empty secret disables auth (sim/dev
// builds only). hub feeds GET /v1/events; pass nil to disable the route.
func NewRouter(mgr *wcm.Manager, hub *EventHub, secret string, log zerolog.Logger) http.Handler {
	h := NewHandler(mgr, hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newRequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/events", h.Events)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(secret))

			r.Get("/networks", h.ListNetworks)
			r.Post("/networks", h.AddNetwork)
			r.Delete("/networks/{name}", h.RemoveNetwork)

			r.Post("/connect/{name}", h.Connect)
			r.Post("/disconnect", h.Disconnect)
			r.Post("/scan", h.Scan)

			r.Post("/uap/{name}/start", h.StartUAP)
			r.Post("/uap/{name}/stop", h.StopUAP)

			r.Post("/powersave/ieee", h.IEEEPowerSave)
			r.Post("/powersave/deepsleep", h.DeepSleepPowerSave)
			r.Post("/hostsleep", h.SendHostSleep)
		})
	})

	return r
}

// newRequestLogger logs each request's method, path, status and duration
// at debug level once it completes.
func newRequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}

// corsMiddleware adds CORS headers for cross-origin requests, same shape
// the daemon's sibling HTTP services use.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
