package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rutero-app/rutero/internal/customers"
	"github.com/rutero-app/rutero/internal/observability"
	"github.com/rutero-app/rutero/internal/orders"
	"github.com/rutero-app/rutero/internal/payments"
	"github.com/rutero-app/rutero/internal/routes"
	"github.com/rutero-app/rutero/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	OrdersHandler    *orders.Handler
	PaymentsHandler  *payments.Handler
	RoutesHandler    *routes.Handler
	CustomersHandler *customers.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Rutero defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		params.OrdersHandler.MountRoutes(r)
		params.PaymentsHandler.MountRoutes(r)
		params.RoutesHandler.MountRoutes(r)
		params.CustomersHandler.MountRoutes(r)
		if params.JobsHandler != nil {
			params.JobsHandler.MountRoutes(r)
		}
	})

	return r
}
