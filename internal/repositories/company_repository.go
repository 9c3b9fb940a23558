package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/deifi86/TeamChat/internal/models"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrOwnerProtected  = errors.New("company owner cannot be removed or demoted")
)

// CompanyMemberInfo is a member row joined with the user's profile.
type CompanyMemberInfo struct {
	models.User
	Role string `db:"role" json:"role"`
}

// CompanyRepository abstracts company persistence and the membership
// predicates every other component consults before acting.
type CompanyRepository interface {
	CreateCompany(ctx context.Context, name, joinPasswordHash string, ownerID int) (models.Company, error)
	GetCompany(ctx context.Context, companyID int) (models.Company, error)
	SearchCompanies(ctx context.Context, query string) ([]models.Company, error)
	ListCompaniesForUser(ctx context.Context, userID int) ([]models.CompanyOverview, error)
	IsMember(ctx context.Context, companyID int, userID int) (bool, error)
	IsAdmin(ctx context.Context, companyID int, userID int) (bool, error)
	ListMembers(ctx context.Context, companyID int) ([]CompanyMemberInfo, error)
	CompanyIDsForUser(ctx context.Context, userID int) ([]int, error)
	JoinCompany(ctx context.Context, companyID, userID int) error
	LeaveCompany(ctx context.Context, companyID, userID int) error
	UpdateMemberRole(ctx context.Context, companyID, userID int, role string) error
	RemoveCompanyMember(ctx context.Context, companyID, userID int) error
}

// CompanyRepo is a sqlx implementation of CompanyRepository.
type CompanyRepo struct {
	db *sqlx.DB
}

// NewCompanyRepo constructs a CompanyRepo.
func NewCompanyRepo(db *sqlx.DB) *CompanyRepo {
	return &CompanyRepo{db: db}
}

const companyColumns = `id, name, slug, join_password, owner_id, created_at`

// CreateCompany creates a company with the caller as owner, records the owner
// as an admin member, and seeds the default public channel so the workspace is
// never channel-less. The slug is derived from the name; collisions get a
// numeric suffix.
func (r *CompanyRepo) CreateCompany(ctx context.Context, name, joinPasswordHash string, ownerID int) (models.Company, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Company{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	base := slugify(name)
	var company models.Company
	for attempt := 0; ; attempt++ {
		slug := base
		if attempt > 0 {
			slug = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		err = tx.QueryRowxContext(ctx, `INSERT INTO companies (name, slug, join_password, owner_id)
            VALUES ($1, $2, $3, $4) RETURNING `+companyColumns,
			name, slug, joinPasswordHash, ownerID).StructScan(&company)
		if err == nil {
			break
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && attempt < 10 {
			continue
		}
		return models.Company{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO company_members (company_id, user_id, role) VALUES ($1, $2, $3)`,
		company.ID, ownerID, models.RoleAdmin); err != nil {
		return models.Company{}, err
	}

	var channelID int
	err = tx.QueryRowxContext(ctx, `INSERT INTO channels (company_id, name, description, is_private, created_by)
        VALUES ($1, $2, $3, FALSE, $4) RETURNING id`,
		company.ID, "Allgemein", "Allgemeiner Kanal für alle Mitglieder", ownerID).Scan(&channelID)
	if err != nil {
		return models.Company{}, err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)`,
		channelID, ownerID); err != nil {
		return models.Company{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Company{}, err
	}
	return company, nil
}

// GetCompany fetches a company by id.
func (r *CompanyRepo) GetCompany(ctx context.Context, companyID int) (models.Company, error) {
	var company models.Company
	err := r.db.GetContext(ctx, &company, `SELECT `+companyColumns+` FROM companies WHERE id=$1`, companyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Company{}, ErrCompanyNotFound
	}
	return company, err
}

// SearchCompanies matches companies by name or slug, capped at 20 rows.
func (r *CompanyRepo) SearchCompanies(ctx context.Context, query string) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.SelectContext(ctx, &companies, `SELECT `+companyColumns+` FROM companies
        WHERE name ILIKE '%' || $1 || '%' OR slug ILIKE '%' || $1 || '%'
        ORDER BY name ASC LIMIT 20`, query)
	return companies, err
}

// ListCompaniesForUser returns every company the user belongs to, with the
// member count and the caller's role attached.
func (r *CompanyRepo) ListCompaniesForUser(ctx context.Context, userID int) ([]models.CompanyOverview, error) {
	var companies []models.CompanyOverview
	err := r.db.SelectContext(ctx, &companies, `SELECT c.id, c.name, c.slug, c.join_password, c.owner_id, c.created_at,
        (SELECT COUNT(*) FROM company_members mc WHERE mc.company_id = c.id) AS members_count,
        COALESCE(cm.role, $2) AS my_role,
        (c.owner_id = $1) AS is_owner
        FROM companies c
        LEFT JOIN company_members cm ON cm.company_id = c.id AND cm.user_id = $1
        WHERE c.owner_id = $1 OR cm.user_id IS NOT NULL
        ORDER BY c.name ASC`, userID, models.RoleAdmin)
	return companies, err
}

// IsMember reports whether the user belongs to the company. The owner is
// always a member even without a member row.
func (r *CompanyRepo) IsMember(ctx context.Context, companyID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM companies WHERE id=$1 AND owner_id=$2
        UNION
        SELECT 1 FROM company_members WHERE company_id=$1 AND user_id=$2)`, companyID, userID)
	return exists, err
}

// IsAdmin reports whether the user has admin rights in the company. Owners
// are admin-equivalent regardless of their member row.
func (r *CompanyRepo) IsAdmin(ctx context.Context, companyID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM companies WHERE id=$1 AND owner_id=$2
        UNION
        SELECT 1 FROM company_members WHERE company_id=$1 AND user_id=$2 AND role=$3)`,
		companyID, userID, models.RoleAdmin)
	return exists, err
}

// ListMembers returns the company's members with their roles.
func (r *CompanyRepo) ListMembers(ctx context.Context, companyID int) ([]CompanyMemberInfo, error) {
	var members []CompanyMemberInfo
	err := r.db.SelectContext(ctx, &members, `SELECT u.id, u.username, u.avatar_path, u.status, u.status_text, u.created_at, cm.role
        FROM company_members cm INNER JOIN users u ON u.id = cm.user_id
        WHERE cm.company_id=$1 ORDER BY u.username ASC`, companyID)
	return members, err
}

// CompanyIDsForUser returns ids of every company the user belongs to.
func (r *CompanyRepo) CompanyIDsForUser(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM companies WHERE owner_id=$1
        UNION
        SELECT company_id FROM company_members WHERE user_id=$1`, userID)
	return ids, err
}

// JoinCompany adds the user as a regular member and enrolls them in every
// public channel of the company. Joining twice returns ErrAlreadyMember.
func (r *CompanyRepo) JoinCompany(ctx context.Context, companyID, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO company_members (company_id, user_id, role)
        VALUES ($1, $2, $3) ON CONFLICT (company_id, user_id) DO NOTHING`,
		companyID, userID, models.RoleUser)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		err = ErrAlreadyMember
		return err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id)
        SELECT id, $2 FROM channels WHERE company_id=$1 AND is_private=FALSE
        ON CONFLICT (channel_id, user_id) DO NOTHING`, companyID, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// LeaveCompany removes the user's membership and their channel memberships in
// the company. The owner cannot leave.
func (r *CompanyRepo) LeaveCompany(ctx context.Context, companyID, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = r.guardOwner(ctx, tx, companyID, userID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM company_members WHERE company_id=$1 AND user_id=$2`, companyID, userID)
	if err != nil {
		return err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if removed == 0 {
		err = ErrMemberNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM channel_members
        WHERE user_id=$2 AND channel_id IN (SELECT id FROM channels WHERE company_id=$1)`,
		companyID, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateMemberRole changes a member's role. The owner's role is fixed.
func (r *CompanyRepo) UpdateMemberRole(ctx context.Context, companyID, userID int, role string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = r.guardOwner(ctx, tx, companyID, userID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE company_members SET role=$3 WHERE company_id=$1 AND user_id=$2`,
		companyID, userID, role)
	if err != nil {
		return err
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if updated == 0 {
		err = ErrMemberNotFound
		return err
	}

	return tx.Commit()
}

// RemoveCompanyMember kicks a member out of the company and its channels.
// The owner cannot be removed.
func (r *CompanyRepo) RemoveCompanyMember(ctx context.Context, companyID, userID int) error {
	return r.LeaveCompany(ctx, companyID, userID)
}

// guardOwner fails with ErrOwnerProtected when userID owns the company, so
// membership mutations can never demote or evict the owner.
func (r *CompanyRepo) guardOwner(ctx context.Context, tx *sqlx.Tx, companyID, userID int) error {
	var ownerID int
	err := tx.GetContext(ctx, &ownerID, `SELECT owner_id FROM companies WHERE id=$1`, companyID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCompanyNotFound
	}
	if err != nil {
		return err
	}
	if ownerID == userID {
		return ErrOwnerProtected
	}
	return nil
}

// slugify lowers the name and collapses anything outside [a-z0-9] to single
// hyphens, the same shape ecosystem sluggers produce.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "company"
	}
	return slug
}
