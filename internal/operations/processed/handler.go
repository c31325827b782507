package processed

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/shared"
)

// Handler exposes the processed goods API.
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

// GoodRequest creates or updates a catalog entry.
type GoodRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	SKU       string `json:"sku" validate:"max=50"`
	Unit      string `json:"unit" validate:"required,max=20"`
	UnitPrice string `json:"unit_price" validate:"required"`
}

// MountRoutes registers processed goods routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLotView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/sales", h.salesHistory)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBatchCreate))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r.URL.Query(), 50)
	goods, total, err := h.service.List(r.Context(), r.URL.Query().Get("search"), page.Limit, page.Offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"goods": goods, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	good, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, good)
}

func (h *Handler) salesHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.SalesHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": entries})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeGood(w, r)
	if !ok {
		return
	}
	good, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, good)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeGood(w, r)
	if !ok {
		return
	}
	good, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, good)
}

func (h *Handler) decodeGood(w http.ResponseWriter, r *http.Request) (GoodInput, bool) {
	var req GoodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return GoodInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return GoodInput{}, false
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Price", "unit_price must be a decimal number")
		return GoodInput{}, false
	}
	return GoodInput{
		Name:      req.Name,
		SKU:       req.SKU,
		Unit:      req.Unit,
		UnitPrice: price,
		ActorID:   shared.CurrentUserID(r),
	}, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Stock Operation", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
