package invoices

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/shared"
)

// JobsPort enqueues background work.
type JobsPort interface {
	EnqueueInvoicePDF(ctx context.Context, invoiceID string) error
}

// StoragePort presigns object downloads.
type StoragePort interface {
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
}

// Handler exposes the invoice API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	jobs    JobsPort
	storage StoragePort
	rbac    rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, jobs JobsPort, storage StoragePort, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, jobs: jobs, storage: storage, rbac: mw}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrderView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/html", h.renderHTML)
		r.Get("/{id}/pdf", h.downloadPDF)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInvoiceIssue))
		r.Post("/orders/{orderID}", h.issue)
		r.Post("/{id}/pdf", h.requestPDF)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r.URL.Query(), 50)
	invoices, total, err := h.service.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) renderHTML(w http.ResponseWriter, r *http.Request) {
	html, err := h.service.RenderHTML(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.service.Issue(r.Context(), chi.URLParam(r, "orderID"), shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) requestPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.Get(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	if err := h.jobs.EnqueueInvoicePDF(r.Context(), id); err != nil {
		h.logger.Error("enqueue invoice pdf", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

func (h *Handler) downloadPDF(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if invoice.PDFKey == "" {
		h.respondServiceError(w, ErrPDFNotReady)
		return
	}
	url, expires, err := h.storage.PresignDownload(r.Context(), invoice.PDFKey)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"url": url, "expires_at": expires})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyIssued):
		httpx.Problem(w, http.StatusConflict, "Already Invoiced", err.Error())
	case errors.Is(err, ErrOrderNotCompleted):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Order Not Completed", err.Error())
	case errors.Is(err, ErrPDFNotReady):
		httpx.Problem(w, http.StatusConflict, "PDF Not Ready", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
