package batches

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

// Handler exposes the production batch API.
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

// ConsumptionRequest is one lot debit line.
type ConsumptionRequest struct {
	LotID    string `json:"lot_id" validate:"required,uuid4"`
	Quantity string `json:"quantity" validate:"required"`
}

// CreateRequest creates a production batch.
type CreateRequest struct {
	BatchDate       string               `json:"batch_date" validate:"omitempty,datetime=2006-01-02"`
	ProcessedGoodID string               `json:"processed_good_id" validate:"required,uuid4"`
	OutputQuantity  string               `json:"output_quantity" validate:"required"`
	OutputUnit      string               `json:"output_unit" validate:"required,max=20"`
	Consumption     []ConsumptionRequest `json:"consumption" validate:"required,min=1,dive"`
	Notes           string               `json:"notes" validate:"max=2000"`
}

// QARequest records a QA verdict.
type QARequest struct {
	Status string `json:"status" validate:"required,oneof=pending passed failed"`
}

// MountRoutes registers batch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLotView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBatchCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBatchQA))
		r.Post("/{id}/qa", h.setQA)
		r.Post("/{id}/lock", h.lock)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r.URL.Query(), 50)
	batches, total, err := h.service.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": batches, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	batch, usage, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batch": batch, "usage": usage})
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
	output, err := decimal.NewFromString(req.OutputQuantity)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", "output_quantity must be a decimal number")
		return
	}
	lines := make([]ConsumptionLine, 0, len(req.Consumption))
	for _, c := range req.Consumption {
		qty, err := decimal.NewFromString(c.Quantity)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", "consumption quantity must be a decimal number")
			return
		}
		lines = append(lines, ConsumptionLine{LotID: c.LotID, Quantity: qty})
	}
	var batchDate time.Time
	if req.BatchDate != "" {
		batchDate, _ = time.Parse("2006-01-02", req.BatchDate)
	}

	batch, err := h.service.Create(r.Context(), CreateInput{
		BatchDate:       batchDate,
		ProcessedGoodID: req.ProcessedGoodID,
		OutputQuantity:  output,
		OutputUnit:      req.OutputUnit,
		Consumption:     lines,
		Notes:           req.Notes,
		ActorID:         shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

func (h *Handler) setQA(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	batch, err := h.service.SetQAStatus(r.Context(), chi.URLParam(r, "id"), QAStatus(req.Status), shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.Lock(r.Context(), chi.URLParam(r, "id"), shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLotNotFound), errors.Is(err, ErrGoodNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrLocked):
		httpx.Problem(w, http.StatusConflict, "Batch Locked", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNoConsumption),
		errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrDuplicateLot),
		errors.Is(err, ErrInvalidQAStatus):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Batch", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
