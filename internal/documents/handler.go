package documents

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

// Handler exposes the documents API.
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

type createFolderRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type grantRequest struct {
	UserID int64  `json:"user_id" validate:"required"`
	Access string `json:"access" validate:"required,oneof=read write"`
}

type uploadRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=120"`
	SizeBytes   int64  `json:"size_bytes" validate:"gte=0"`
}

// MountRoutes registers the documents routes. Folder-level access is
// enforced by the service; the route permissions gate the module surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDocumentView))
		r.Get("/folders", h.listFolders)
		r.Get("/folders/{folderID}/files", h.listFiles)
		r.Get("/files/{id}/download", h.download)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentUpload))
		r.Post("/folders/{folderID}/files", h.requestUpload)
		r.Delete("/files/{id}", h.deleteFile)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentAdmin))
		r.Post("/folders", h.createFolder)
		r.Delete("/folders/{folderID}", h.deleteFolder)
		r.Get("/folders/{folderID}/grants", h.listGrants)
		r.Put("/folders/{folderID}/grants", h.setGrant)
		r.Delete("/folders/{folderID}/grants/{userID}", h.revokeGrant)
	})
}

func (h *Handler) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.service.ListFolders(r.Context(), shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (h *Handler) createFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	folder, err := h.service.CreateFolder(r.Context(), req.Name, req.Description, shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, folder)
}

func (h *Handler) deleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathInt64(r, "folderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "folder id must be numeric")
		return
	}
	if err := h.service.DeleteFolder(r.Context(), folderID, shared.CurrentUserID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathInt64(r, "folderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "folder id must be numeric")
		return
	}
	grants, err := h.service.ListGrants(r.Context(), folderID, shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (h *Handler) setGrant(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathInt64(r, "folderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "folder id must be numeric")
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SetGrant(r.Context(), folderID, req.UserID, Access(req.Access), shared.CurrentUserID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeGrant(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathInt64(r, "folderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "folder id must be numeric")
		return
	}
	userID, err := pathInt64(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be numeric")
		return
	}
	if err := h.service.RevokeGrant(r.Context(), folderID, userID, shared.CurrentUserID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathInt64(r, "folderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "folder id must be numeric")
		return
	}
	files, err := h.service.ListFiles(r.Context(), folderID, shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *Handler) requestUpload(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathInt64(r, "folderID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "folder id must be numeric")
		return
	}
	var req uploadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.service.RequestUpload(r.Context(), folderID, req.Name, req.ContentType, req.SizeBytes, shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ticket)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.service.Download(r.Context(), chi.URLParam(r, "id"), shared.CurrentUserID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteFile(r.Context(), chi.URLParam(r, "id"), shared.CurrentUserID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrFolderNotFound), errors.Is(err, ErrFileNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrInvalidAccess):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Access", err.Error())
	case errors.Is(err, ErrFolderNotEmpty):
		httpx.Problem(w, http.StatusConflict, "Folder Not Empty", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
