package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/printflow-erp/printflow-erp/internal/inventory"
	"github.com/printflow-erp/printflow-erp/internal/notifications"
	"github.com/printflow-erp/printflow-erp/internal/observability"
	"github.com/printflow-erp/printflow-erp/internal/orderfeed"
	"github.com/printflow-erp/printflow-erp/internal/orders"
	"github.com/printflow-erp/printflow-erp/internal/procurement"
	"github.com/printflow-erp/printflow-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	ActorResolver        ActorResolver
	OrdersHandler        *orders.Handler
	InventoryHandler     *inventory.Handler
	ProcurementHandler   *procurement.Handler
	NotificationsHandler *notifications.Handler
	FeedHandler          *orderfeed.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with PrintFlow defaults.
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
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireActor(params.ActorResolver, params.Logger))

		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/purchase-requests", params.ProcurementHandler.MountRoutes)
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		if params.FeedHandler != nil {
			r.Route("/feed", params.FeedHandler.MountRoutes)
		}
	})

	return r
}
