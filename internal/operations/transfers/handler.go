package transfers

import (
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

// Handler exposes the transfer API.
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

// TransferRequest creates a transfer record.
type TransferRequest struct {
	FromLotID    string `json:"from_lot_id" validate:"required,uuid4"`
	ToLotID      string `json:"to_lot_id" validate:"required,uuid4"`
	TransferDate string `json:"transfer_date" validate:"omitempty,datetime=2006-01-02"`
	Quantity     string `json:"quantity" validate:"required"`
	Reason       string `json:"reason" validate:"required,max=200"`
	Notes        string `json:"notes" validate:"max=2000"`
}

// MountRoutes registers transfer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLotView))
		r.Get("/", h.list)
		r.Get("/lots/{lotID}", h.listByLot)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTransfer))
		r.Post("/", h.transfer)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r.URL.Query(), 50)
	records, total, err := h.service.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records, "total": total})
}

func (h *Handler) listByLot(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListByLot(r.Context(), chi.URLParam(r, "lotID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
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
	var transferDate time.Time
	if req.TransferDate != "" {
		transferDate, _ = time.Parse("2006-01-02", req.TransferDate)
	}

	rec, err := h.service.Transfer(r.Context(), TransferInput{
		FromLotID:    req.FromLotID,
		ToLotID:      req.ToLotID,
		TransferDate: transferDate,
		Quantity:     qty,
		Reason:       req.Reason,
		Notes:        req.Notes,
		ActorID:      shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLotNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrSameLot), errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrUnitMismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transfer", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
