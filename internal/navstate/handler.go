package navstate

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/shared"
)

// Handler exposes the navigation state API for the signed-in user.
type Handler struct {
	logger   *slog.Logger
	store    *Store
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, store *Store, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, store: store, validate: validate}
}

type saveRequest struct {
	ActivePage string            `json:"active_page" validate:"required,max=100"`
	Filters    map[string]string `json:"filters"`
}

// MountRoutes registers navigation state routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.load)
	r.Put("/", h.save)
	r.Delete("/", h.clear)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	userID := shared.CurrentUserID(r)
	if userID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	state, err := h.store.Load(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	userID := shared.CurrentUserID(r)
	if userID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.store.Save(r.Context(), userID, State{ActivePage: req.ActivePage, Filters: req.Filters}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	userID := shared.CurrentUserID(r)
	if userID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	if err := h.store.Clear(r.Context(), userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
