package models

import "time"

// Presence statuses a user can carry.
const (
	StatusAvailable = "available"
	StatusBusy      = "busy"
	StatusAway      = "away"
	StatusOffline   = "offline"
)

// ValidStatus reports whether s is a known presence status.
func ValidStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusAway, StatusOffline:
		return true
	}
	return false
}

// User is an account with ephemeral presence state.
type User struct {
	ID         int       `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	AvatarPath *string   `db:"avatar_path" json:"avatar_path,omitempty"`
	Status     string    `db:"status" json:"status"`
	StatusText string    `db:"status_text" json:"status_text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AvatarURL returns the public URL for the user's avatar, or empty when unset.
func (u User) AvatarURL() string {
	if u.AvatarPath == nil || *u.AvatarPath == "" {
		return ""
	}
	return "/storage/" + *u.AvatarPath
}
