package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/office-portal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/office-portal/internal/http/middleware"
	"github.com/wolfman30/office-portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Portal             *handlers.PortalHandler
	Live               *handlers.LiveHub
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// PortalJWTSecret enables the bearer-token gate on /api when set.
	PortalJWTSecret string
	// LoginRateLimit caps login attempts per IP per minute; 0 disables it.
	LoginRateLimit int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Portal == nil {
		panic("router: portal handler required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Portal.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.PortalJWT(cfg.PortalJWTSecret))

		api.Route("/session", func(s chi.Router) {
			s.Get("/", cfg.Portal.GetSession)
			if cfg.LoginRateLimit > 0 {
				limiter := httpmiddleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateLimit)
				s.With(httpmiddleware.RateLimit(limiter)).Post("/login", cfg.Portal.Login)
			} else {
				s.Post("/login", cfg.Portal.Login)
			}
			s.Post("/logout", cfg.Portal.Logout)
		})

		api.Post("/range", cfg.Portal.SetRange)
		api.Post("/refresh", cfg.Portal.Refresh)
		api.Get("/bookings", cfg.Portal.ListBookings)
		api.Post("/bookings/delete", cfg.Portal.DeleteSelected)
		api.Get("/series", cfg.Portal.Series)
		api.Get("/breakdown", cfg.Portal.Breakdown)
		api.With(middleware.Compress(5)).Get("/export.csv", cfg.Portal.ExportCSV)
		api.Post("/export/archive", cfg.Portal.ArchiveCSV)

		api.Route("/selection", func(sel chi.Router) {
			sel.Get("/", cfg.Portal.GetSelection)
			sel.Post("/toggle", cfg.Portal.ToggleSelection)
			sel.Post("/clear", cfg.Portal.ClearSelection)
		})

		api.Get("/recipients", cfg.Portal.Recipients)
		api.Get("/recipients/{id}", cfg.Portal.Recipient)
		api.Get("/messages", cfg.Portal.ListMessages)
		api.Post("/messages/send", cfg.Portal.SendMessage)

		if cfg.Live != nil {
			api.Get("/live", cfg.Live.HandleWebSocket)
		}
	})

	return r
}
