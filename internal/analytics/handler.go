package analytics

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/shared"
	"github.com/hatvoni/insider/report"
)

// Handler exposes the inventory analytics report.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gotenberg *report.Client
	rbac      rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, gotenberg *report.Client, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gotenberg: gotenberg, rbac: mw}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLotView))
		r.Get("/inventory", h.inventoryJSON)
		r.Get("/inventory/html", h.inventoryHTML)
		r.Get("/inventory/pdf", h.inventoryPDF)
	})
}

func (h *Handler) period(r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	var from, to time.Time
	var err error
	if raw := q.Get("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			return from, to, false
		}
	}
	if raw := q.Get("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			return from, to, false
		}
	}
	return from, to, true
}

func (h *Handler) inventoryJSON(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", "from/to must be YYYY-MM-DD")
		return
	}
	data, err := h.service.InventoryReport(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) inventoryHTML(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", "from/to must be YYYY-MM-DD")
		return
	}
	html, err := h.service.InventoryReportHTML(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (h *Handler) inventoryPDF(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", "from/to must be YYYY-MM-DD")
		return
	}
	html, err := h.service.InventoryReportHTML(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.gotenberg.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render inventory pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "pdf renderer unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory-report.pdf"`)
	_, _ = w.Write(pdf)
}
