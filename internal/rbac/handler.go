package rbac

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hatvoni/insider/internal/platform/httpx"
	"github.com/hatvoni/insider/internal/shared"
)

// Handler exposes the role and module administration API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, mw Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, rbac: mw}
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type rolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

type moduleRequest struct {
	Module string `json:"module" validate:"required,oneof=finance operations sales documents admin"`
}

// MountRoutes registers role administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRoleManage))
		r.Get("/roles", h.listRoles)
		r.Post("/roles", h.createRole)
		r.Get("/roles/{id}", h.showRole)
		r.Put("/roles/{id}", h.updateRole)
		r.Delete("/roles/{id}", h.deleteRole)
		r.Put("/roles/{id}/permissions", h.setRolePermissions)
		r.Get("/permissions", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUserManage))
		r.Post("/users/{id}/roles/{roleID}", h.assignRole)
		r.Delete("/users/{id}/roles/{roleID}", h.removeRole)
		r.Get("/users/{id}/modules", h.listUserModules)
		r.Post("/users/{id}/modules", h.grantModule)
		r.Delete("/users/{id}/modules/{module}", h.revokeModule)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	perms, err := h.service.RolePermissions(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "permissions": perms})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req rolePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), id, req.PermissionIDs); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUserModules(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	modules, err := h.service.UserModules(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": modules})
}

func (h *Handler) grantModule(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req moduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.GrantModule(r.Context(), userID, req.Module); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeModule(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.RevokeModule(r.Context(), userID, chi.URLParam(r, "module")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "path parameter must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	httpx.RespondError(w, err)
}
