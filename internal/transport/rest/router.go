package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/auth"
	"github.com/muzaffarov/bozor-billing/internal/gateway/click"
	"github.com/muzaffarov/bozor-billing/internal/gateway/payme"
	"github.com/muzaffarov/bozor-billing/internal/periods"
	"github.com/muzaffarov/bozor-billing/internal/reconciliation"
	"github.com/muzaffarov/bozor-billing/internal/transport/middleware"
	"github.com/muzaffarov/bozor-billing/internal/transport/swagger"
)

type Handlers struct {
	Auth           *auth.Handler
	AuthMiddleware *auth.Middleware
	Click          *click.Handler
	Payme          *payme.Handler
	Periods        *periods.Handler
	Reconciliation *reconciliation.Handler
}

// RegisterAllRoutes wires the public gateway endpoints and the
// authenticated operator surface. Gateway webhooks stay outside the
// JWT guard: Click is signature-checked, Payme basic-auth-checked.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, cfg *internal.Config, handlers Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if handlers.Click != nil {
			r.Post("/click/prepare", handlers.Click.HandlePrepare)
			r.Post("/click/complete", handlers.Click.HandleComplete)
		}
		if handlers.Payme != nil {
			r.Post("/payme", handlers.Payme.Handle)
		}

		if handlers.Auth != nil {
			r.Post("/auth/login", handlers.Auth.Login)
		}

		if handlers.AuthMiddleware != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(handlers.AuthMiddleware.RequireAuth)

				if handlers.Periods != nil {
					pr.Route("/contracts/{id}/payments", func(cr chi.Router) {
						cr.Get("/", handlers.Periods.ListPayments)
						cr.Post("/manual", handlers.Periods.RecordManualPayment)
					})
				}

				if handlers.Reconciliation != nil {
					pr.Get("/transactions", handlers.Reconciliation.ListTransactions)
					pr.Route("/reconciliation", func(rr chi.Router) {
						rr.Get("/daily", handlers.Reconciliation.Daily)
						rr.Get("/monthly", handlers.Reconciliation.Monthly)
						rr.Get("/summary", handlers.Reconciliation.Summary)
					})
				}
			})
		}
	})
}
