package models

import "time"

// Message content types.
const (
	ContentTypeText  = "text"
	ContentTypeFile  = "file"
	ContentTypeImage = "image"
	ContentTypeEmoji = "emoji"
)

// ValidContentType reports whether t is a known message content type.
func ValidContentType(t string) bool {
	switch t {
	case ContentTypeText, ContentTypeFile, ContentTypeImage, ContentTypeEmoji:
		return true
	}
	return false
}

// Message is a chat message stored encrypted. Content holds the base64
// ciphertext; ContentIV the base64 nonce, empty for legacy plaintext rows.
type Message struct {
	ID              int             `db:"id" json:"id"`
	MessageableType MessageableType `db:"messageable_type" json:"messageable_type"`
	MessageableID   int             `db:"messageable_id" json:"messageable_id"`
	SenderID        int             `db:"sender_id" json:"sender_id"`
	Content         string          `db:"content" json:"-"`
	ContentIV       string          `db:"content_iv" json:"-"`
	ContentType     string          `db:"content_type" json:"content_type"`
	ParentID        *int            `db:"parent_id" json:"parent_id,omitempty"`
	EditedAt        *time.Time      `db:"edited_at" json:"edited_at,omitempty"`
	DeletedAt       *time.Time      `db:"deleted_at" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Owner returns the messageable the message belongs to.
func (m Message) Owner() Messageable {
	return Messageable{Type: m.MessageableType, ID: m.MessageableID}
}

// IsDeleted reports whether the message was soft-deleted.
func (m Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// MessageWithSender joins a message row with its sender's profile columns.
type MessageWithSender struct {
	Message
	SenderUsername   string  `db:"sender_username" json:"-"`
	SenderAvatarPath *string `db:"sender_avatar_path" json:"-"`
	SenderStatus     string  `db:"sender_status" json:"-"`
}

// Sender builds the sender's user view from the joined columns.
func (m MessageWithSender) Sender() User {
	return User{
		ID:         m.SenderID,
		Username:   m.SenderUsername,
		AvatarPath: m.SenderAvatarPath,
		Status:     m.SenderStatus,
	}
}
