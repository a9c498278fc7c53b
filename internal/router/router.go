package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/homedeliver/api/internal/app"
	"github.com/homedeliver/api/internal/config"
	"github.com/homedeliver/api/internal/enum"
	"github.com/homedeliver/api/internal/handler"
	mw "github.com/homedeliver/api/internal/middleware"
	"github.com/homedeliver/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, svc *app.Services, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(svc.Queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/vendors/{vid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Staff routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleNavigator))
			clientHandler := handler.NewClientHandler(svc.Clients, svc.Configs, svc.History)
			r.Route("/clients", clientHandler.RegisterRoutes)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			lifecycleHandler := handler.NewLifecycleHandler(svc.Lifecycle)
			r.Route("/lifecycle", lifecycleHandler.RegisterRoutes)

			migrationHandler := handler.NewMigrationHandler(svc.Migration)
			r.Route("/migration", migrationHandler.RegisterRoutes)
		})

		// Orders: vendors upload proof, admins settle billing
		orderHandler := handler.NewOrderHandler(svc.Orders)
		r.Route("/orders/{id}", func(r chi.Router) {
			r.With(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleVendor)).Post("/proof", orderHandler.UploadProof)
			r.With(mw.RequireRole(enum.UserRoleAdmin)).Patch("/billing-status", orderHandler.UpdateBillingStatus)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
