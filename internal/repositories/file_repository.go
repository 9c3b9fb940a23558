package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/deifi86/TeamChat/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

// CreateFileParams carries metadata for a stored file. The bytes themselves
// live with the external storage collaborator.
type CreateFileParams struct {
	Owner         models.Messageable
	MessageID     *int
	UploadedBy    int
	OriginalName  string
	StoredName    string
	MimeType      string
	SizeBytes     int64
	IsCompressed  bool
	ThumbnailPath *string
}

// FileRepository abstracts file metadata persistence.
type FileRepository interface {
	CreateFile(ctx context.Context, params CreateFileParams) (models.File, error)
	GetFile(ctx context.Context, fileID int) (models.File, error)
	ListFiles(ctx context.Context, owner models.Messageable) ([]models.File, error)
}

// FileRepo is a sqlx implementation of FileRepository.
type FileRepo struct {
	db *sqlx.DB
}

// NewFileRepo constructs a FileRepo.
func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

const fileColumns = `id, fileable_type, fileable_id, message_id, uploaded_by, original_name, stored_name, mime_type, size_bytes, is_compressed, thumbnail_path, created_at`

// CreateFile records file metadata.
func (r *FileRepo) CreateFile(ctx context.Context, params CreateFileParams) (models.File, error) {
	var file models.File
	err := r.db.QueryRowxContext(ctx, `INSERT INTO files
        (fileable_type, fileable_id, message_id, uploaded_by, original_name, stored_name, mime_type, size_bytes, is_compressed, thumbnail_path)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+fileColumns,
		params.Owner.Type, params.Owner.ID, params.MessageID, params.UploadedBy,
		params.OriginalName, params.StoredName, params.MimeType, params.SizeBytes,
		params.IsCompressed, params.ThumbnailPath).StructScan(&file)
	return file, err
}

// GetFile fetches a file record by id.
func (r *FileRepo) GetFile(ctx context.Context, fileID int) (models.File, error) {
	var file models.File
	err := r.db.GetContext(ctx, &file, `SELECT `+fileColumns+` FROM files WHERE id=$1`, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.File{}, ErrFileNotFound
	}
	return file, err
}

// ListFiles returns file records for a channel or conversation, newest first.
func (r *FileRepo) ListFiles(ctx context.Context, owner models.Messageable) ([]models.File, error) {
	var files []models.File
	err := r.db.SelectContext(ctx, &files, `SELECT `+fileColumns+` FROM files
        WHERE fileable_type=$1 AND fileable_id=$2 ORDER BY created_at DESC`, owner.Type, owner.ID)
	return files, err
}
