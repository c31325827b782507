package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hatvoni/insider/internal/analytics"
	"github.com/hatvoni/insider/internal/auth"
	"github.com/hatvoni/insider/internal/documents"
	"github.com/hatvoni/insider/internal/finance"
	"github.com/hatvoni/insider/internal/navstate"
	"github.com/hatvoni/insider/internal/observability"
	"github.com/hatvoni/insider/internal/operations/batches"
	"github.com/hatvoni/insider/internal/operations/lots"
	"github.com/hatvoni/insider/internal/operations/processed"
	"github.com/hatvoni/insider/internal/operations/transfers"
	"github.com/hatvoni/insider/internal/operations/waste"
	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/sales/customers"
	"github.com/hatvoni/insider/internal/sales/delivery"
	"github.com/hatvoni/insider/internal/sales/invoices"
	"github.com/hatvoni/insider/internal/sales/orders"
	"github.com/hatvoni/insider/internal/shared"
	"github.com/hatvoni/insider/internal/users"
	"github.com/hatvoni/insider/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler      *auth.Handler
	FinanceHandler   *finance.Handler
	LotsHandler      *lots.Handler
	WasteHandler     *waste.Handler
	TransfersHandler *transfers.Handler
	BatchesHandler   *batches.Handler
	ProcessedHandler *processed.Handler
	CustomersHandler *customers.Handler
	OrdersHandler    *orders.Handler
	InvoicesHandler  *invoices.Handler
	DeliveryHandler  *delivery.Handler
	DocumentsHandler *documents.Handler
	RBACHandler      *rbac.Handler
	UsersHandler     *users.Handler
	NavStateHandler  *navstate.Handler
	AnalyticsHandler *analytics.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Hands the session-bound CSRF token to the SPA on boot.
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			httpx.Problem(w, http.StatusInternalServerError, "Session Error", "session unavailable")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/finance", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireModule(shared.ModuleFinance))
		params.FinanceHandler.MountRoutes(r)
	})

	r.Route("/operations", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireModule(shared.ModuleOperations))
		r.Route("/lots", params.LotsHandler.MountRoutes)
		r.Route("/waste", params.WasteHandler.MountRoutes)
		r.Route("/transfers", params.TransfersHandler.MountRoutes)
		r.Route("/batches", params.BatchesHandler.MountRoutes)
		r.Route("/processed-goods", params.ProcessedHandler.MountRoutes)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireModule(shared.ModuleSales))
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		r.Route("/delivery", params.DeliveryHandler.MountRoutes)
	})

	r.Route("/documents", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireModule(shared.ModuleDocuments))
		params.DocumentsHandler.MountRoutes(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireModule(shared.ModuleAdmin))
		r.Route("/access", params.RBACHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
	})

	r.Route("/navstate", params.NavStateHandler.MountRoutes)

	r.Route("/report", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireModule(shared.ModuleOperations))
		params.AnalyticsHandler.MountRoutes(r)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
