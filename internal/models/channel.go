package models

import "time"

// Join request states. Once resolved a request never returns to pending.
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// Channel is a named room inside a company. Public channels include every
// company member implicitly; private ones track explicit membership.
type Channel struct {
	ID          int       `db:"id" json:"id"`
	CompanyID   int       `db:"company_id" json:"company_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsPrivate   bool      `db:"is_private" json:"is_private"`
	CreatedBy   int       `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChannelMember records explicit channel membership with join metadata.
type ChannelMember struct {
	ChannelID int       `db:"channel_id" json:"channel_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	AddedBy   *int      `db:"added_by" json:"added_by,omitempty"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// ChannelJoinRequest is a user's pending request to join a private channel.
type ChannelJoinRequest struct {
	ID         int        `db:"id" json:"id"`
	ChannelID  int        `db:"channel_id" json:"channel_id"`
	UserID     int        `db:"user_id" json:"user_id"`
	Status     string     `db:"status" json:"status"`
	ResolvedBy *int       `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
