package models

import "time"

// ReadReceipt is a per-user watermark into a channel or conversation. It is
// overwritten on each read, never appended.
type ReadReceipt struct {
	UserID            int             `db:"user_id" json:"user_id"`
	MessageableType   MessageableType `db:"messageable_type" json:"messageable_type"`
	MessageableID     int             `db:"messageable_id" json:"messageable_id"`
	LastReadMessageID int             `db:"last_read_message_id" json:"last_read_message_id"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}
