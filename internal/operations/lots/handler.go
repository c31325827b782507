package lots

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/shared"
)

// Handler exposes the lot API.
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

// MountRoutes registers lot routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLotView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/history", h.history)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermLotReceive))
		r.Post("/", h.create)
		r.Post("/{id}/receive", h.receive)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	if raw := q.Get("kind"); raw != "" {
		kind := Kind(raw)
		if kind != KindRawMaterial && kind != KindRecurringProduct {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "kind must be raw_material or recurring_product")
			return
		}
		filter.Kind = &kind
	}
	page := shared.ParsePagination(q, 50)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	list, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Lots: list, Total: total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	lot, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	merge, _ := strconv.ParseBool(r.URL.Query().Get("merge_batch_usage"))
	hist, err := h.service.History(r.Context(), chi.URLParam(r, "id"), merge)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, hist)
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
	qty, err := decimal.NewFromString(req.InitialQuantity)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", "initial_quantity must be a decimal number")
		return
	}
	lot, err := h.service.Create(r.Context(), CreateInput{
		Kind:            Kind(req.Kind),
		Name:            req.Name,
		Supplier:        req.Supplier,
		Unit:            req.Unit,
		InitialQuantity: qty,
		ActorID:         shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", "quantity must be a decimal number")
		return
	}
	lot, err := h.service.Receive(r.Context(), chi.URLParam(r, "id"), qty, shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
