package documents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hatvoni/insider/internal/shared"
)

type memoryRepo struct {
	nextFolderID int64
	folders      map[int64]Folder
	grants       map[int64]map[int64]Access
	files        map[string]File
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		folders: make(map[int64]Folder),
		grants:  make(map[int64]map[int64]Access),
		files:   make(map[string]File),
	}
}

func (r *memoryRepo) CreateFolder(ctx context.Context, f Folder) (Folder, error) {
	r.nextFolderID++
	f.ID = r.nextFolderID
	f.CreatedAt = time.Now()
	r.folders[f.ID] = f
	return f, nil
}

func (r *memoryRepo) GetFolder(ctx context.Context, id int64) (*Folder, error) {
	f, ok := r.folders[id]
	if !ok {
		return nil, ErrFolderNotFound
	}
	return &f, nil
}

func (r *memoryRepo) ListFolders(ctx context.Context) ([]Folder, error) {
	out := []Folder{}
	for _, f := range r.folders {
		out = append(out, f)
	}
	return out, nil
}

func (r *memoryRepo) DeleteFolder(ctx context.Context, id int64) (int64, error) {
	if _, ok := r.folders[id]; !ok {
		return 0, nil
	}
	delete(r.folders, id)
	delete(r.grants, id)
	return 1, nil
}

func (r *memoryRepo) FileCount(ctx context.Context, folderID int64) (int, error) {
	count := 0
	for _, f := range r.files {
		if f.FolderID == folderID {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) UpsertGrant(ctx context.Context, g Grant) error {
	if r.grants[g.FolderID] == nil {
		r.grants[g.FolderID] = make(map[int64]Access)
	}
	r.grants[g.FolderID][g.UserID] = g.Access
	return nil
}

func (r *memoryRepo) RevokeGrant(ctx context.Context, folderID, userID int64) error {
	delete(r.grants[folderID], userID)
	return nil
}

func (r *memoryRepo) ListGrants(ctx context.Context, folderID int64) ([]Grant, error) {
	out := []Grant{}
	for userID, access := range r.grants[folderID] {
		out = append(out, Grant{FolderID: folderID, UserID: userID, Access: access})
	}
	return out, nil
}

func (r *memoryRepo) UserAccess(ctx context.Context, folderID, userID int64) (Access, bool, error) {
	access, ok := r.grants[folderID][userID]
	return access, ok, nil
}

func (r *memoryRepo) ReadableFolderIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	for folderID, byUser := range r.grants {
		if _, ok := byUser[userID]; ok {
			ids = append(ids, folderID)
		}
	}
	return ids, nil
}

func (r *memoryRepo) InsertFile(ctx context.Context, f File) (File, error) {
	f.CreatedAt = time.Now()
	r.files[f.ID] = f
	return f, nil
}

func (r *memoryRepo) GetFile(ctx context.Context, id string) (*File, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	return &f, nil
}

func (r *memoryRepo) ListFiles(ctx context.Context, folderID int64) ([]File, error) {
	out := []File{}
	for _, f := range r.files {
		if f.FolderID == folderID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memoryRepo) DeleteFile(ctx context.Context, id string) (int64, error) {
	if _, ok := r.files[id]; !ok {
		return 0, nil
	}
	delete(r.files, id)
	return 1, nil
}

type memoryStorage struct {
	deleted []string
}

func (s *memoryStorage) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	return "https://store.test/upload/" + key, time.Now().Add(15 * time.Minute), nil
}

func (s *memoryStorage) PresignDownload(ctx context.Context, key string) (string, time.Time, error) {
	return "https://store.test/download/" + key, time.Now().Add(15 * time.Minute), nil
}

func (s *memoryStorage) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type memoryAccess struct {
	perms map[int64][]string
}

func (a *memoryAccess) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return a.perms[userID], nil
}

const (
	adminUser  int64 = 1
	writerUser int64 = 2
	readerUser int64 = 3
	strangerID int64 = 4
)

func newTestService(t *testing.T) (*Service, *memoryRepo, *memoryStorage) {
	t.Helper()
	repo := newMemoryRepo()
	store := &memoryStorage{}
	access := &memoryAccess{perms: map[int64][]string{
		adminUser: {shared.PermDocumentAdmin, shared.PermDocumentView},
	}}
	return NewService(repo, store, access, nil), repo, store
}

func seedFolder(t *testing.T, svc *Service, repo *memoryRepo) int64 {
	t.Helper()
	folder, err := svc.CreateFolder(context.Background(), "Invoices", "", adminUser)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertGrant(context.Background(), Grant{FolderID: folder.ID, UserID: writerUser, Access: AccessWrite}))
	require.NoError(t, repo.UpsertGrant(context.Background(), Grant{FolderID: folder.ID, UserID: readerUser, Access: AccessRead}))
	return folder.ID
}

func TestListFoldersFiltersByGrant(t *testing.T) {
	svc, repo, _ := newTestService(t)
	folderID := seedFolder(t, svc, repo)
	_, err := svc.CreateFolder(context.Background(), "HR", "", adminUser)
	require.NoError(t, err)

	visible, err := svc.ListFolders(context.Background(), readerUser)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, folderID, visible[0].ID)

	all, err := svc.ListFolders(context.Background(), adminUser)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRequestUploadRequiresWriteAccess(t *testing.T) {
	svc, repo, _ := newTestService(t)
	folderID := seedFolder(t, svc, repo)

	_, err := svc.RequestUpload(context.Background(), folderID, "scan.pdf", "application/pdf", 1024, readerUser)
	require.ErrorIs(t, err, ErrForbidden)

	ticket, err := svc.RequestUpload(context.Background(), folderID, "scan.pdf", "application/pdf", 1024, writerUser)
	require.NoError(t, err)
	require.Contains(t, ticket.UploadURL, ticket.File.ObjectKey)
	require.Contains(t, ticket.File.ObjectKey, "scan.pdf")
}

func TestDownloadRequiresReadAccess(t *testing.T) {
	svc, repo, _ := newTestService(t)
	folderID := seedFolder(t, svc, repo)

	ticket, err := svc.RequestUpload(context.Background(), folderID, "scan.pdf", "application/pdf", 1024, writerUser)
	require.NoError(t, err)

	_, err = svc.Download(context.Background(), ticket.File.ID, strangerID)
	require.ErrorIs(t, err, ErrForbidden)

	dl, err := svc.Download(context.Background(), ticket.File.ID, readerUser)
	require.NoError(t, err)
	require.Contains(t, dl.DownloadURL, ticket.File.ObjectKey)
}

func TestAdminBypassesFolderGrants(t *testing.T) {
	svc, repo, _ := newTestService(t)
	folderID := seedFolder(t, svc, repo)
	require.NoError(t, repo.RevokeGrant(context.Background(), folderID, adminUser))

	_, err := svc.RequestUpload(context.Background(), folderID, "audit.xlsx", "application/vnd.ms-excel", 2048, adminUser)
	require.NoError(t, err)
}

func TestDeleteFileRemovesObject(t *testing.T) {
	svc, repo, store := newTestService(t)
	folderID := seedFolder(t, svc, repo)

	ticket, err := svc.RequestUpload(context.Background(), folderID, "scan.pdf", "application/pdf", 1024, writerUser)
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteFile(context.Background(), ticket.File.ID, readerUser), ErrForbidden)
	require.NoError(t, svc.DeleteFile(context.Background(), ticket.File.ID, writerUser))
	require.Equal(t, []string{ticket.File.ObjectKey}, store.deleted)
}

func TestDeleteFolderRejectsNonEmpty(t *testing.T) {
	svc, repo, _ := newTestService(t)
	folderID := seedFolder(t, svc, repo)

	_, err := svc.RequestUpload(context.Background(), folderID, "scan.pdf", "application/pdf", 1024, writerUser)
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteFolder(context.Background(), folderID, adminUser), ErrFolderNotEmpty)
}

func TestSetGrantValidates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	folderID := seedFolder(t, svc, repo)

	require.ErrorIs(t, svc.SetGrant(context.Background(), folderID, strangerID, Access("owner"), adminUser), ErrInvalidAccess)
	require.ErrorIs(t, svc.SetGrant(context.Background(), folderID, strangerID, AccessRead, writerUser), ErrForbidden)
	require.NoError(t, svc.SetGrant(context.Background(), folderID, strangerID, AccessRead, adminUser))

	files, err := svc.ListFiles(context.Background(), folderID, strangerID)
	require.NoError(t, err)
	require.Empty(t, files)
}
