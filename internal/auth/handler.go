// Package auth serves the login and logout endpoints over Redis-backed
// sessions.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/shared"
	"github.com/hatvoni/insider/internal/users"
)

// Handler serves session authentication.
type Handler struct {
	logger   *slog.Logger
	users    *users.Service
	sessions *shared.SessionManager
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, userSvc *users.Service, sessions *shared.SessionManager, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, users: userSvc, sessions: sessions, validate: validate}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidCredentials):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		case errors.Is(err, users.ErrInactive):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "account is deactivated")
		default:
			httpx.RespondError(w, err)
		}
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Session Error", "session unavailable")
		return
	}
	sess.SetUser(fmt.Sprint(user.ID))
	h.logger.Info("user signed in", "user_id", user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id := shared.CurrentUserID(r)
	if id == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
