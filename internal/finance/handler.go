package finance

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

// Handler exposes the finance API.
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

// RecordRequest creates a finance entry.
type RecordRequest struct {
	Type        string `json:"type" validate:"required,oneof=contribution income expense"`
	EntryDate   string `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Category    string `json:"category" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// MountRoutes registers finance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermFinanceView))
		r.Get("/entries", h.list)
		r.Get("/summary", h.summary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermFinanceRecord))
		r.Post("/entries", h.record)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if raw := q.Get("type"); raw != "" {
		typ := EntryType(raw)
		if typ != EntryContribution && typ != EntryIncome && typ != EntryExpense {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "type must be contribution, income or expense")
			return
		}
		filter.Type = &typ
	}
	if from, ok := parseDate(q.Get("from")); ok {
		filter.From = &from
	}
	if to, ok := parseDate(q.Get("to")); ok {
		filter.To = &to
	}
	page := shared.ParsePagination(q, 50)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	entries, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries, "total": total})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, okFrom := parseDate(q.Get("from"))
	to, okTo := parseDate(q.Get("to"))
	if !okFrom || !okTo {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Range", "from and to are required as YYYY-MM-DD")
		return
	}
	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Amount", "amount must be a decimal number")
		return
	}
	var entryDate time.Time
	if req.EntryDate != "" {
		entryDate, _ = time.Parse("2006-01-02", req.EntryDate)
	}

	entry, err := h.service.Record(r.Context(), RecordInput{
		Type:        EntryType(req.Type),
		EntryDate:   entryDate,
		Amount:      amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		ActorID:     shared.CurrentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidRange):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Finance Entry", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
