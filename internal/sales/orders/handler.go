package orders

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/shared"
)

// Handler exposes the order API.
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

// ItemRequest is one requested order line.
type ItemRequest struct {
	ProcessedGoodID string `json:"processed_good_id" validate:"required,uuid4"`
	Quantity        string `json:"quantity" validate:"required"`
	UnitPrice       string `json:"unit_price" validate:"required"`
}

// CreateRequest creates a draft order.
type CreateRequest struct {
	CustomerID string        `json:"customer_id" validate:"required,uuid4"`
	OrderDate  string        `json:"order_date" validate:"omitempty,datetime=2006-01-02"`
	Items      []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes      string        `json:"notes" validate:"max=2000"`
}

// UpdateRequest edits a mutable order.
type UpdateRequest struct {
	OrderDate string        `json:"order_date" validate:"omitempty,datetime=2006-01-02"`
	Items     []ItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes     string        `json:"notes" validate:"max=2000"`
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrderView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/unlock-remaining", h.unlockRemaining)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderConfirm))
		r.Post("/{id}/confirm", h.confirm)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderComplete))
		r.Post("/{id}/complete", h.complete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderUnlock))
		r.Post("/{id}/lock", h.lock)
		r.Post("/{id}/unlock", h.unlock)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{CustomerID: q.Get("customer_id")}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		if status != StatusDraft && status != StatusConfirmed && status != StatusCompleted {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "status must be draft, confirmed or completed")
			return
		}
		filter.Status = &status
	}
	page := shared.ParsePagination(q, 50)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	list, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": list, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) unlockRemaining(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.service.UnlockRemaining(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"remaining_seconds": int64(remaining.Seconds()),
		"locked_forever":    remaining <= 0,
	})
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
	items, ok := h.decodeItems(w, req.Items)
	if !ok {
		return
	}
	var orderDate time.Time
	if req.OrderDate != "" {
		orderDate, _ = time.Parse("2006-01-02", req.OrderDate)
	}

	order, err := h.service.Create(r.Context(), CreateInput{
		CustomerID: req.CustomerID,
		OrderDate:  orderDate,
		Items:      items,
		Notes:      req.Notes,
		ActorID:    shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
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
	items, ok := h.decodeItems(w, req.Items)
	if !ok {
		return
	}
	var orderDate time.Time
	if req.OrderDate != "" {
		orderDate, _ = time.Parse("2006-01-02", req.OrderDate)
	}

	order, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), UpdateInput{
		OrderDate: orderDate,
		Items:     items,
		Notes:     req.Notes,
		ActorID:   shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Confirm)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Lock)
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Unlock)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string, actorID int64) (*Order, error)) {
	order, err := fn(r.Context(), chi.URLParam(r, "id"), shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) decodeItems(w http.ResponseWriter, reqs []ItemRequest) ([]ItemInput, bool) {
	items := make([]ItemInput, 0, len(reqs))
	for _, req := range reqs {
		qty, err := decimal.NewFromString(req.Quantity)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", "item quantity must be a decimal number")
			return nil, false
		}
		price, err := decimal.NewFromString(req.UnitPrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Price", "unit_price must be a decimal number")
			return nil, false
		}
		items = append(items, ItemInput{ProcessedGoodID: req.ProcessedGoodID, Quantity: qty, UnitPrice: price})
	}
	return items, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCustomerNotFound), errors.Is(err, ErrGoodNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrLocked), errors.Is(err, ErrWindowElapsed):
		httpx.Problem(w, http.StatusConflict, "Order Locked", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Order", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
