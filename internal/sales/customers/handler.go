package customers

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/shared"
)

// Handler exposes the customer API.
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

// Request creates or updates a customer.
type Request struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=50"`
	Address   string `json:"address" validate:"max=500"`
	TaxNumber string `json:"tax_number" validate:"max=50"`
	PhotoKey  string `json:"photo_key" validate:"max=500"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCustomerView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCustomerManage))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/archive", h.archive)
		r.Post("/{id}/restore", h.restore)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeArchived, _ := strconv.ParseBool(q.Get("include_archived"))
	page := shared.ParsePagination(q, 50)
	list, total, err := h.service.List(r.Context(), q.Get("search"), includeArchived, page.Limit, page.Offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": list, "total": total})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	customer, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	customer, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Archive(r.Context(), chi.URLParam(r, "id"), shared.CurrentUserID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Restore(r.Context(), chi.URLParam(r, "id"), shared.CurrentUserID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return Input{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return Input{}, false
	}
	return Input{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		TaxNumber: req.TaxNumber,
		PhotoKey:  req.PhotoKey,
		Notes:     req.Notes,
		ActorID:   shared.CurrentUserID(r),
	}, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	httpx.RespondError(w, err)
}
