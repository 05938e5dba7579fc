package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/auth"
	"github.com/ares-dev-tech/dashboard/httpx"
	"github.com/ares-dev-tech/dashboard/internal/handlers"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

// App is the main application handler that sets up all routes.
type App struct {
	router *chi.Mux
	db     *gorm.DB
	svc    *services.Services
	logger *log.Logger
	now    func() time.Time
}

// NewApp wires the handlers of svc behind the middleware chain.
func NewApp(db *gorm.DB, svc *services.Services, logger *log.Logger, now func() time.Time) *App {
	if now == nil {
		now = time.Now
	}
	app := &App{router: chi.NewRouter(), db: db, svc: svc, logger: logger, now: now}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	r := a.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(a.logger))
	r.Use(handlers.Recover)
	r.Use(handlers.Lang)
	r.Use(auth.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	// Public routes
	r.Get("/health", handlers.Live)
	r.Get("/healthz", handlers.Ready(a.db))

	ah := handlers.NewAuthHandler(a.svc.Users)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)
		r.Post("/auth/logout", ah.Logout)

		// Authenticated routes; records are scoped to the user by the services.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/auth/me", ah.Me)

			ch := handlers.NewClientHandler(a.svc.Clients)
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", ch.List)
				r.Post("/", ch.Create)
				r.Get("/{id}", ch.Get)
				r.Put("/{id}", ch.Update)
				r.Delete("/{id}", ch.Delete)
			})

			arh := handlers.NewArticleHandler(a.svc.Articles)
			r.Route("/articles", func(r chi.Router) {
				r.Get("/", arh.List)
				r.Post("/", arh.Create)
				r.Get("/{id}", arh.Get)
				r.Put("/{id}", arh.Update)
				r.Delete("/{id}", arh.Delete)
			})

			sh := handlers.NewSaleHandler(a.svc.Sales)
			r.Route("/sales", func(r chi.Router) {
				r.Get("/", sh.List)
				r.Post("/", sh.Create)
				r.Get("/{id}", sh.Get)
				r.Put("/{id}", sh.Update)
				r.Patch("/{id}/status", sh.SetStatus)
				r.Delete("/{id}", sh.Delete)
			})

			cgh := handlers.NewChargeHandler(a.svc.Charges)
			r.Route("/charges", func(r chi.Router) {
				r.Get("/", cgh.List)
				r.Post("/", cgh.Create)
				r.Get("/{id}", cgh.Get)
				r.Put("/{id}", cgh.Update)
				r.Delete("/{id}", cgh.Delete)
			})

			seth := handlers.NewSettingsHandler(a.svc.Settings)
			r.Get("/settings", seth.Get)
			r.Put("/settings", seth.Update)

			dh := handlers.NewDashboardHandler(a.svc.Dashboard, a.now)
			r.Get("/dashboard", dh.Summary)
			r.Get("/evolution", dh.Evolution)
			r.Get("/recurrences/upcoming", dh.Upcoming)
		})
	})
}
