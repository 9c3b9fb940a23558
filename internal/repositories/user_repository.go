package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/deifi86/TeamChat/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	GetUsers(ctx context.Context, userIDs []int) ([]models.User, error)
	SearchUsers(ctx context.Context, query string, excludeUserID int) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID int, username, statusText *string) (models.User, error)
	UpdateStatus(ctx context.Context, userID int, status string, statusText string) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, avatar_path, status, status_text, created_at`

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUsers fetches users in bulk.
func (r *UserRepo) GetUsers(ctx context.Context, userIDs []int) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...)
	return users, err
}

// SearchUsers matches usernames case-insensitively, excluding the caller,
// capped at 20 rows.
func (r *UserRepo) SearchUsers(ctx context.Context, query string, excludeUserID int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users
        WHERE id <> $2 AND username ILIKE '%' || $1 || '%'
        ORDER BY username ASC LIMIT 20`, query, excludeUserID)
	return users, err
}

// UpdateProfile changes the fields that were provided and leaves the rest
// untouched. Taking a username that exists returns ErrUsernameTaken.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, username, statusText *string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users
        SET username=COALESCE($2, username), status_text=COALESCE($3, status_text)
        WHERE id=$1 RETURNING `+userColumns, userID, username, statusText).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.User{}, ErrUsernameTaken
	}
	return user, err
}

// UpdateStatus sets the user's presence status and free-text message.
func (r *UserRepo) UpdateStatus(ctx context.Context, userID int, status string, statusText string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET status=$2, status_text=$3 WHERE id=$1
        RETURNING `+userColumns, userID, status, statusText).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
