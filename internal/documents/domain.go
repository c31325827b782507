package documents

import (
	"errors"
	"time"
)

// Access is the level a grant gives on a folder. Write implies read.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// ValidAccess reports whether a is a known access level.
func ValidAccess(a Access) bool {
	return a == AccessRead || a == AccessWrite
}

// Folder groups documents and carries its own access list.
type Folder struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Grant gives one user an access level on one folder.
type Grant struct {
	FolderID  int64     `json:"folder_id"`
	UserID    int64     `json:"user_id"`
	Access    Access    `json:"access"`
	GrantedBy int64     `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

// File is a stored document. The bytes live in the object store under
// ObjectKey; the row is the metadata.
type File struct {
	ID          string    `json:"id"`
	FolderID    int64     `json:"folder_id"`
	Name        string    `json:"name"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	// ErrFolderNotFound indicates the folder does not exist.
	ErrFolderNotFound = errors.New("documents: folder not found")
	// ErrFileNotFound indicates the file does not exist.
	ErrFileNotFound = errors.New("documents: file not found")
	// ErrForbidden indicates the user lacks access to the folder.
	ErrForbidden = errors.New("documents: access denied")
	// ErrInvalidAccess indicates an unknown access level.
	ErrInvalidAccess = errors.New("documents: invalid access level")
	// ErrFolderNotEmpty indicates the folder still holds files.
	ErrFolderNotEmpty = errors.New("documents: folder not empty")
)
