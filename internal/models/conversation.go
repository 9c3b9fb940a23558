package models

import "time"

// DirectConversation is a two-user conversation stored in canonical order:
// user_one_id is always the smaller id so a pair maps to at most one row.
type DirectConversation struct {
	ID              int       `db:"id" json:"id"`
	UserOneID       int       `db:"user_one_id" json:"user_one_id"`
	UserTwoID       int       `db:"user_two_id" json:"user_two_id"`
	UserOneAccepted bool      `db:"user_one_accepted" json:"user_one_accepted"`
	UserTwoAccepted bool      `db:"user_two_accepted" json:"user_two_accepted"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// HasUser reports whether the user participates in the conversation.
func (c DirectConversation) HasUser(userID int) bool {
	return c.UserOneID == userID || c.UserTwoID == userID
}

// OtherUserID returns the participant opposite to userID.
func (c DirectConversation) OtherUserID(userID int) int {
	if c.UserOneID == userID {
		return c.UserTwoID
	}
	return c.UserOneID
}

// IsAccepted reports whether both sides accepted the conversation.
func (c DirectConversation) IsAccepted() bool {
	return c.UserOneAccepted && c.UserTwoAccepted
}

// AcceptedBy reports whether the given participant's flag is set.
func (c DirectConversation) AcceptedBy(userID int) bool {
	if c.UserOneID == userID {
		return c.UserOneAccepted
	}
	return c.UserTwoAccepted
}
