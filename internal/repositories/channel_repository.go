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
	ErrChannelNotFound      = errors.New("channel not found")
	ErrLastChannel          = errors.New("cannot delete the last channel of a company")
	ErrAlreadyMember        = errors.New("user is already a channel member")
	ErrMemberNotFound       = errors.New("channel member not found")
	ErrJoinRequestNotFound  = errors.New("join request not found")
	ErrDuplicateJoinRequest = errors.New("join request already pending")
	ErrJoinRequestResolved  = errors.New("join request already resolved")
)

// ChannelMemberInfo is a channel member row joined with the user's profile.
type ChannelMemberInfo struct {
	models.User
	AddedBy  *int         `db:"added_by" json:"added_by,omitempty"`
	JoinedAt sql.NullTime `db:"joined_at" json:"joined_at"`
}

// ChannelRepository abstracts channel, membership, and join-request persistence.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, companyID int, name, description string, isPrivate bool, createdBy int) (models.Channel, error)
	GetChannel(ctx context.Context, channelID int) (models.Channel, error)
	ListChannels(ctx context.Context, companyID int) ([]models.Channel, error)
	UpdateChannel(ctx context.Context, channelID int, name, description string) (models.Channel, error)
	DeleteChannel(ctx context.Context, channelID int) error
	IsMemberOfChannel(ctx context.Context, channel models.Channel, userID int) (bool, error)
	ListChannelMembers(ctx context.Context, channelID int) ([]ChannelMemberInfo, error)
	AddMember(ctx context.Context, channelID, userID int, addedBy *int) error
	RemoveMember(ctx context.Context, channelID, userID int) error
	CreateJoinRequest(ctx context.Context, channelID, userID int) (models.ChannelJoinRequest, error)
	GetJoinRequest(ctx context.Context, requestID int) (models.ChannelJoinRequest, error)
	ListPendingJoinRequests(ctx context.Context, channelID int) ([]models.ChannelJoinRequest, error)
	ResolveJoinRequest(ctx context.Context, requestID int, approve bool, resolvedBy int) (models.ChannelJoinRequest, error)
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, company_id, name, description, is_private, created_by, created_at`

// CreateChannel creates a channel and adds the creator as a member atomically.
func (r *ChannelRepo) CreateChannel(ctx context.Context, companyID int, name, description string, isPrivate bool, createdBy int) (models.Channel, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var channel models.Channel
	if err = tx.QueryRowxContext(ctx, `INSERT INTO channels (company_id, name, description, is_private, created_by)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+channelColumns,
		companyID, name, description, isPrivate, createdBy).StructScan(&channel); err != nil {
		return models.Channel{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id, added_by) VALUES ($1, $2, $2)
        ON CONFLICT (channel_id, user_id) DO NOTHING`, channel.ID, createdBy); err != nil {
		return models.Channel{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// ListChannels returns all channels of a company.
func (r *ChannelRepo) ListChannels(ctx context.Context, companyID int) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.SelectContext(ctx, &channels, `SELECT `+channelColumns+` FROM channels WHERE company_id=$1 ORDER BY created_at ASC`, companyID)
	return channels, err
}

// UpdateChannel renames a channel.
func (r *ChannelRepo) UpdateChannel(ctx context.Context, channelID int, name, description string) (models.Channel, error) {
	var channel models.Channel
	err := r.db.QueryRowxContext(ctx, `UPDATE channels SET name=$2, description=$3 WHERE id=$1 RETURNING `+channelColumns,
		channelID, name, description).StructScan(&channel)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// DeleteChannel removes a channel. A company must always retain at least one
// channel, so deleting the last one fails with ErrLastChannel.
func (r *ChannelRepo) DeleteChannel(ctx context.Context, channelID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var companyID int
	err = tx.GetContext(ctx, &companyID, `SELECT company_id FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrChannelNotFound
		return err
	}
	if err != nil {
		return err
	}

	// Serialize concurrent deletes on the company row. Locking only the
	// channel row would let two deletes of the last two channels each
	// count 2 and leave the company without channels.
	if _, err = tx.ExecContext(ctx, `SELECT id FROM companies WHERE id=$1 FOR UPDATE`, companyID); err != nil {
		return err
	}

	var count int
	if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM channels WHERE company_id=$1`, companyID); err != nil {
		return err
	}
	if count <= 1 {
		err = ErrLastChannel
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM read_receipts WHERE messageable_type=$1 AND messageable_id=$2`, models.MessageableChannel, channelID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM files WHERE fileable_type=$1 AND fileable_id=$2`, models.MessageableChannel, channelID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE messageable_type=$1 AND messageable_id=$2`, models.MessageableChannel, channelID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, channelID); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// IsMemberOfChannel reports channel membership. Public channels include every
// company member; private channels require an explicit member row.
func (r *ChannelRepo) IsMemberOfChannel(ctx context.Context, channel models.Channel, userID int) (bool, error) {
	if !channel.IsPrivate {
		var exists bool
		err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
            SELECT 1 FROM companies WHERE id=$1 AND owner_id=$2
            UNION
            SELECT 1 FROM company_members WHERE company_id=$1 AND user_id=$2)`, channel.CompanyID, userID)
		return exists, err
	}

	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2)`, channel.ID, userID)
	return exists, err
}

// ListChannelMembers returns explicit members with join metadata.
func (r *ChannelRepo) ListChannelMembers(ctx context.Context, channelID int) ([]ChannelMemberInfo, error) {
	var members []ChannelMemberInfo
	err := r.db.SelectContext(ctx, &members, `SELECT u.id, u.username, u.avatar_path, u.status, u.status_text, u.created_at, cm.added_by, cm.joined_at
        FROM channel_members cm INNER JOIN users u ON u.id = cm.user_id
        WHERE cm.channel_id=$1 ORDER BY cm.joined_at ASC`, channelID)
	return members, err
}

// AddMember inserts a channel membership.
func (r *ChannelRepo) AddMember(ctx context.Context, channelID, userID int, addedBy *int) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id, added_by) VALUES ($1, $2, $3)
        ON CONFLICT (channel_id, user_id) DO NOTHING`, channelID, userID, addedBy)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrAlreadyMember
	}
	return nil
}

// RemoveMember deletes a channel membership.
func (r *ChannelRepo) RemoveMember(ctx context.Context, channelID, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channel_members WHERE channel_id=$1 AND user_id=$2`, channelID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMemberNotFound
	}
	return nil
}

const joinRequestColumns = `id, channel_id, user_id, status, resolved_by, created_at, resolved_at`

// CreateJoinRequest records a pending join request. The partial unique index
// on (channel_id, user_id) WHERE pending is the authoritative duplicate guard.
func (r *ChannelRepo) CreateJoinRequest(ctx context.Context, channelID, userID int) (models.ChannelJoinRequest, error) {
	var request models.ChannelJoinRequest
	err := r.db.QueryRowxContext(ctx, `INSERT INTO channel_join_requests (channel_id, user_id) VALUES ($1, $2)
        RETURNING `+joinRequestColumns, channelID, userID).StructScan(&request)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.ChannelJoinRequest{}, ErrDuplicateJoinRequest
		}
		return models.ChannelJoinRequest{}, err
	}
	return request, nil
}

// GetJoinRequest fetches a join request by id.
func (r *ChannelRepo) GetJoinRequest(ctx context.Context, requestID int) (models.ChannelJoinRequest, error) {
	var request models.ChannelJoinRequest
	err := r.db.GetContext(ctx, &request, `SELECT `+joinRequestColumns+` FROM channel_join_requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChannelJoinRequest{}, ErrJoinRequestNotFound
	}
	return request, err
}

// ListPendingJoinRequests returns unresolved requests for the channel.
func (r *ChannelRepo) ListPendingJoinRequests(ctx context.Context, channelID int) ([]models.ChannelJoinRequest, error) {
	var requests []models.ChannelJoinRequest
	err := r.db.SelectContext(ctx, &requests, `SELECT `+joinRequestColumns+` FROM channel_join_requests
        WHERE channel_id=$1 AND status=$2 ORDER BY created_at ASC`, channelID, models.JoinRequestPending)
	return requests, err
}

// ResolveJoinRequest approves or rejects a pending request. Approval inserts
// the membership in the same transaction; resolution is terminal.
func (r *ChannelRepo) ResolveJoinRequest(ctx context.Context, requestID int, approve bool, resolvedBy int) (models.ChannelJoinRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ChannelJoinRequest{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	status := models.JoinRequestRejected
	if approve {
		status = models.JoinRequestApproved
	}

	var request models.ChannelJoinRequest
	err = tx.QueryRowxContext(ctx, `UPDATE channel_join_requests
        SET status=$2, resolved_by=$3, resolved_at=NOW()
        WHERE id=$1 AND status=$4
        RETURNING `+joinRequestColumns, requestID, status, resolvedBy, models.JoinRequestPending).StructScan(&request)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrJoinRequestResolved
		return models.ChannelJoinRequest{}, err
	}
	if err != nil {
		return models.ChannelJoinRequest{}, err
	}

	if approve {
		if _, err = tx.ExecContext(ctx, `INSERT INTO channel_members (channel_id, user_id, added_by) VALUES ($1, $2, $3)
            ON CONFLICT (channel_id, user_id) DO NOTHING`, request.ChannelID, request.UserID, resolvedBy); err != nil {
			return models.ChannelJoinRequest{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.ChannelJoinRequest{}, err
	}
	return request, nil
}
