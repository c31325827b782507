package documents

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hatvoni/insider/internal/shared"
)

// StoragePort is the slice of the object store the documents module uses.
type StoragePort interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}

// AccessPort answers whether a user holds a permission. Implemented by the
// rbac service; lets folder admins bypass per-folder grants.
type AccessPort interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service enforces per-folder access on top of the object store.
type Service struct {
	repo    RepositoryPort
	storage StoragePort
	access  AccessPort
	audit   AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, storage StoragePort, access AccessPort, audit AuditPort) *Service {
	return &Service{repo: repo, storage: storage, access: access, audit: audit}
}

// isAdmin reports whether the user holds the documents admin permission,
// which bypasses folder grants entirely.
func (s *Service) isAdmin(ctx context.Context, userID int64) (bool, error) {
	if s.access == nil {
		return false, nil
	}
	perms, err := s.access.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == shared.PermDocumentAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) canRead(ctx context.Context, folderID, userID int64) (bool, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil || admin {
		return admin, err
	}
	_, ok, err := s.repo.UserAccess(ctx, folderID, userID)
	return ok, err
}

func (s *Service) canWrite(ctx context.Context, folderID, userID int64) (bool, error) {
	admin, err := s.isAdmin(ctx, userID)
	if err != nil || admin {
		return admin, err
	}
	access, ok, err := s.repo.UserAccess(ctx, folderID, userID)
	if err != nil || !ok {
		return false, err
	}
	return access == AccessWrite, nil
}

// CreateFolder adds a folder and grants the creator write access so the
// folder is usable immediately.
func (s *Service) CreateFolder(ctx context.Context, name, description string, actorID int64) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("documents: folder name required")
	}
	folder, err := s.repo.CreateFolder(ctx, Folder{Name: name, Description: strings.TrimSpace(description), CreatedBy: actorID})
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertGrant(ctx, Grant{FolderID: folder.ID, UserID: actorID, Access: AccessWrite, GrantedBy: actorID}); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "documents:folder-create", fmt.Sprint(folder.ID), map[string]any{"name": folder.Name})
	return &folder, nil
}

// ListFolders returns the folders the user may read. Admins see everything.
func (s *Service) ListFolders(ctx context.Context, userID int64) ([]Folder, error) {
	folders, err := s.repo.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if admin {
		return folders, nil
	}
	ids, err := s.repo.ReadableFolderIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	readable := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		readable[id] = struct{}{}
	}
	visible := []Folder{}
	for _, f := range folders {
		if _, ok := readable[f.ID]; ok {
			visible = append(visible, f)
		}
	}
	return visible, nil
}

// DeleteFolder removes an empty folder. Admin only.
func (s *Service) DeleteFolder(ctx context.Context, folderID, actorID int64) error {
	admin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return ErrForbidden
	}
	count, err := s.repo.FileCount(ctx, folderID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrFolderNotEmpty
	}
	rows, err := s.repo.DeleteFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrFolderNotFound
	}
	s.recordAudit(ctx, actorID, "documents:folder-delete", fmt.Sprint(folderID), nil)
	return nil
}

// SetGrant assigns an access level on a folder. Admin only.
func (s *Service) SetGrant(ctx context.Context, folderID, userID int64, access Access, actorID int64) error {
	if !ValidAccess(access) {
		return ErrInvalidAccess
	}
	admin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return ErrForbidden
	}
	if _, err := s.repo.GetFolder(ctx, folderID); err != nil {
		return err
	}
	if err := s.repo.UpsertGrant(ctx, Grant{FolderID: folderID, UserID: userID, Access: access, GrantedBy: actorID}); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "documents:grant", fmt.Sprint(folderID), map[string]any{"user_id": userID, "access": string(access)})
	return nil
}

// RevokeGrant withdraws a user's access to a folder. Admin only.
func (s *Service) RevokeGrant(ctx context.Context, folderID, userID, actorID int64) error {
	admin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return ErrForbidden
	}
	if err := s.repo.RevokeGrant(ctx, folderID, userID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "documents:revoke", fmt.Sprint(folderID), map[string]any{"user_id": userID})
	return nil
}

// ListGrants returns the access list of a folder. Admin only.
func (s *Service) ListGrants(ctx context.Context, folderID, actorID int64) ([]Grant, error) {
	admin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, ErrForbidden
	}
	if _, err := s.repo.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	return s.repo.ListGrants(ctx, folderID)
}

// ListFiles returns the files in a folder the user may read.
func (s *Service) ListFiles(ctx context.Context, folderID, userID int64) ([]File, error) {
	if _, err := s.repo.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	ok, err := s.canRead(ctx, folderID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return s.repo.ListFiles(ctx, folderID)
}

// UploadTicket is a presigned upload slot plus the registered file record.
type UploadTicket struct {
	File      File      `json:"file"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequestUpload registers a file in the folder and returns a presigned PUT
// URL the client uploads the bytes to. Requires write access.
func (s *Service) RequestUpload(ctx context.Context, folderID int64, name, contentType string, sizeBytes, actorID int64) (*UploadTicket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("documents: file name required")
	}
	if _, err := s.repo.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	ok, err := s.canWrite(ctx, folderID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	id := uuid.NewString()
	key := fmt.Sprintf("documents/%d/%s/%s", folderID, id, sanitizeName(name))
	url, expires, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	file, err := s.repo.InsertFile(ctx, File{
		ID:          id,
		FolderID:    folderID,
		Name:        name,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		UploadedBy:  actorID,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "documents:upload", file.ID, map[string]any{"folder_id": folderID, "name": name})
	return &UploadTicket{File: file, UploadURL: url, ExpiresAt: expires}, nil
}

// DownloadTicket is a presigned download URL.
type DownloadTicket struct {
	File        File      `json:"file"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Download returns a presigned GET URL for a file. Requires read access on
// the file's folder.
func (s *Service) Download(ctx context.Context, fileID string, actorID int64) (*DownloadTicket, error) {
	file, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canRead(ctx, file.FolderID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	url, expires, err := s.storage.PresignDownload(ctx, file.ObjectKey)
	if err != nil {
		return nil, err
	}
	return &DownloadTicket{File: *file, DownloadURL: url, ExpiresAt: expires}, nil
}

// DeleteFile removes a file's metadata and its stored object. Requires
// write access on the folder.
func (s *Service) DeleteFile(ctx context.Context, fileID string, actorID int64) error {
	file, err := s.repo.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	ok, err := s.canWrite(ctx, file.FolderID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	if _, err := s.repo.DeleteFile(ctx, fileID); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, file.ObjectKey); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "documents:delete", fileID, map[string]any{"folder_id": file.FolderID})
	return nil
}

// sanitizeName strips path separators so the object key stays flat under its
// folder prefix.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: id,
		Meta:     meta,
	})
}
