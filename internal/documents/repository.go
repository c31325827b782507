package documents

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts folder, grant and file persistence.
type RepositoryPort interface {
	CreateFolder(ctx context.Context, f Folder) (Folder, error)
	GetFolder(ctx context.Context, id int64) (*Folder, error)
	ListFolders(ctx context.Context) ([]Folder, error)
	DeleteFolder(ctx context.Context, id int64) (int64, error)
	FileCount(ctx context.Context, folderID int64) (int, error)

	UpsertGrant(ctx context.Context, g Grant) error
	RevokeGrant(ctx context.Context, folderID, userID int64) error
	ListGrants(ctx context.Context, folderID int64) ([]Grant, error)
	UserAccess(ctx context.Context, folderID, userID int64) (Access, bool, error)
	ReadableFolderIDs(ctx context.Context, userID int64) ([]int64, error)

	InsertFile(ctx context.Context, f File) (File, error)
	GetFile(ctx context.Context, id string) (*File, error)
	ListFiles(ctx context.Context, folderID int64) ([]File, error)
	DeleteFile(ctx context.Context, id string) (int64, error)
}

// Repository persists documents metadata in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateFolder(ctx context.Context, f Folder) (Folder, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO document_folders (name, description, created_by, created_at)
VALUES ($1,$2,$3,NOW())
RETURNING id, name, description, created_by, created_at`,
		f.Name, f.Description, f.CreatedBy)
	return scanFolder(row)
}

func (r *Repository) GetFolder(ctx context.Context, id int64) (*Folder, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description, created_by, created_at FROM document_folders WHERE id=$1`, id)
	f, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repository) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_by, created_at FROM document_folders ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := []Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (r *Repository) DeleteFolder(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM document_folders WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) FileCount(ctx context.Context, folderID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE folder_id=$1`, folderID).Scan(&count)
	return count, err
}

func (r *Repository) UpsertGrant(ctx context.Context, g Grant) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO document_grants (folder_id, user_id, access, granted_by, created_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (folder_id, user_id) DO UPDATE SET access=EXCLUDED.access, granted_by=EXCLUDED.granted_by`,
		g.FolderID, g.UserID, string(g.Access), g.GrantedBy)
	return err
}

func (r *Repository) RevokeGrant(ctx context.Context, folderID, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM document_grants WHERE folder_id=$1 AND user_id=$2`, folderID, userID)
	return err
}

func (r *Repository) ListGrants(ctx context.Context, folderID int64) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT folder_id, user_id, access, granted_by, created_at FROM document_grants WHERE folder_id=$1 ORDER BY user_id`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []Grant{}
	for rows.Next() {
		var g Grant
		var access string
		if err := rows.Scan(&g.FolderID, &g.UserID, &access, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Access = Access(access)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *Repository) UserAccess(ctx context.Context, folderID, userID int64) (Access, bool, error) {
	var access string
	err := r.pool.QueryRow(ctx, `SELECT access FROM document_grants WHERE folder_id=$1 AND user_id=$2`, folderID, userID).Scan(&access)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return Access(access), true, nil
}

func (r *Repository) ReadableFolderIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT folder_id FROM document_grants WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) InsertFile(ctx context.Context, f File) (File, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO documents (id, folder_id, name, object_key, content_type, size_bytes, uploaded_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
RETURNING id, folder_id, name, object_key, content_type, size_bytes, uploaded_by, created_at`,
		f.ID, f.FolderID, f.Name, f.ObjectKey, f.ContentType, f.SizeBytes, f.UploadedBy)
	return scanFile(row)
}

func (r *Repository) GetFile(ctx context.Context, id string) (*File, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, folder_id, name, object_key, content_type, size_bytes, uploaded_by, created_at FROM documents WHERE id=$1`, id)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repository) ListFiles(ctx context.Context, folderID int64) ([]File, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, folder_id, name, object_key, content_type, size_bytes, uploaded_by, created_at FROM documents WHERE folder_id=$1 ORDER BY created_at DESC`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *Repository) DeleteFile(ctx context.Context, id string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanFolder(row pgx.Row) (Folder, error) {
	var f Folder
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.CreatedBy, &f.CreatedAt)
	return f, err
}

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(&f.ID, &f.FolderID, &f.Name, &f.ObjectKey, &f.ContentType, &f.SizeBytes, &f.UploadedBy, &f.CreatedAt)
	return f, err
}
