package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/AgentShift/internal/adapter/otel"
	"github.com/Strob0t/AgentShift/internal/middleware"
)

// RouterConfig holds the settings of the middleware stack.
type RouterConfig struct {
	CORSOrigin    string
	ServiceName   string
	SecureCookies bool
	Timeout       time.Duration
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(h *Handlers, cfg RouterConfig) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(cfotel.HTTPMiddleware(cfg.ServiceName))
	r.Use(CORS(cfg.CORSOrigin))
	r.Use(Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(chimw.Timeout(cfg.Timeout))

	r.Get("/health", h.Health)
	MountRoutes(r, h, cfg.SecureCookies)
	return r
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, secureCookies bool) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/roster", h.GetRoster)
		r.Post("/subscriptions", h.Subscribe)

		// Session-bound reports
		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(secureCookies))
			r.Post("/reports", h.RunReport)
			r.Get("/reports/download", h.DownloadReport)
			r.Get("/charts/{name}", h.GetChart)
		})
	})
}
