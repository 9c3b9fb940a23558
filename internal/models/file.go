package models

import "time"

// File records uploaded file metadata. A file belongs to a channel or
// conversation and is optionally linked to a message; it survives the
// soft-deletion of that message.
type File struct {
	ID            int             `db:"id" json:"id"`
	FileableType  MessageableType `db:"fileable_type" json:"fileable_type"`
	FileableID    int             `db:"fileable_id" json:"fileable_id"`
	MessageID     *int            `db:"message_id" json:"message_id,omitempty"`
	UploadedBy    int             `db:"uploaded_by" json:"uploaded_by"`
	OriginalName  string          `db:"original_name" json:"original_name"`
	StoredName    string          `db:"stored_name" json:"stored_name"`
	MimeType      string          `db:"mime_type" json:"mime_type"`
	SizeBytes     int64           `db:"size_bytes" json:"size_bytes"`
	IsCompressed  bool            `db:"is_compressed" json:"is_compressed"`
	ThumbnailPath *string         `db:"thumbnail_path" json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
