package delivery

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/shared"
)

// Handler exposes the shipment tracking API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, rbac: mw}
}

// CreateRequest starts tracking a shipment.
type CreateRequest struct {
	OrderID        string `json:"order_id" validate:"required,uuid4"`
	Courier        string `json:"courier" validate:"required,max=100"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
	Notes          string `json:"notes" validate:"max=2000"`
}

// UpdateRequest edits a shipment.
type UpdateRequest struct {
	Courier        string `json:"courier" validate:"max=100"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
	Status         string `json:"status" validate:"required,oneof=pending in_transit delivered failed"`
	EvidenceKey    string `json:"evidence_key" validate:"max=500"`
	Notes          string `json:"notes" validate:"max=2000"`
}

// MountRoutes registers shipment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrderView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/orders/{orderID}", h.showByOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeliveryManage))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var status *Status
	if raw := q.Get("status"); raw != "" {
		s := Status(raw)
		if !ValidStatus(s) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "unknown shipment status")
			return
		}
		status = &s
	}
	page := shared.ParsePagination(q, 50)
	shipments, total, err := h.service.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shipments": shipments, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shipment)
}

func (h *Handler) showByOrder(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.service.GetByOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shipment)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	shipment, err := h.service.Create(r.Context(), CreateInput{
		OrderID:        req.OrderID,
		Courier:        req.Courier,
		TrackingNumber: req.TrackingNumber,
		Notes:          req.Notes,
		ActorID:        shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shipment)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	shipment, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), UpdateInput{
		Courier:        req.Courier,
		TrackingNumber: req.TrackingNumber,
		Status:         Status(req.Status),
		EvidenceKey:    req.EvidenceKey,
		Notes:          req.Notes,
		ActorID:        shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shipment)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyTracked):
		httpx.Problem(w, http.StatusConflict, "Already Tracked", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Status", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
