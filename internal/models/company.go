package models

import "time"

// Membership roles inside a company. The owner is not stored as a member row
// but is always treated as an admin.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Company is a workspace containing channels and members. JoinPassword holds
// the bcrypt hash checked on join and never leaves the server.
type Company struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Slug         string    `db:"slug" json:"slug"`
	JoinPassword string    `db:"join_password" json:"-"`
	OwnerID      int       `db:"owner_id" json:"owner_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CompanyOverview is a company row enriched with the caller's perspective,
// used for the "my companies" listing.
type CompanyOverview struct {
	Company
	MembersCount int    `db:"members_count" json:"members_count"`
	MyRole       string `db:"my_role" json:"my_role"`
	IsOwner      bool   `db:"is_owner" json:"is_owner"`
}

// CompanyMember links a user to a company with a role.
type CompanyMember struct {
	CompanyID int       `db:"company_id" json:"company_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
