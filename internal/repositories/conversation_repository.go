package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/deifi86/TeamChat/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAlreadyAccepted      = errors.New("conversation already accepted")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

// ConversationRepository abstracts direct conversation persistence and the
// bilateral-acceptance lifecycle.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, initiatorID, receiverID int) (models.DirectConversation, bool, error)
	GetConversation(ctx context.Context, conversationID int) (models.DirectConversation, error)
	ListForUser(ctx context.Context, userID int) ([]models.DirectConversation, error)
	AcceptBy(ctx context.Context, conversationID, userID int) (models.DirectConversation, error)
	Delete(ctx context.Context, conversationID int) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, user_one_id, user_two_id, user_one_accepted, user_two_accepted, created_at, updated_at`

// FindOrCreate returns the conversation between the two users, creating it if
// absent. The pair is stored in canonical order (smaller id first) so both
// argument orders resolve to the same row; the UNIQUE constraint guards the
// concurrent-create race. The initiator's acceptance flag is set on creation.
// The second return value reports whether a new row was created.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, initiatorID, receiverID int) (models.DirectConversation, bool, error) {
	if initiatorID == receiverID {
		return models.DirectConversation{}, false, ErrSelfConversation
	}

	userOneID, userTwoID := initiatorID, receiverID
	if userOneID > userTwoID {
		userOneID, userTwoID = userTwoID, userOneID
	}

	var conv models.DirectConversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM direct_conversations
        WHERE user_one_id=$1 AND user_two_id=$2`, userOneID, userTwoID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.DirectConversation{}, false, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO direct_conversations
        (user_one_id, user_two_id, user_one_accepted, user_two_accepted)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_one_id, user_two_id) DO NOTHING
        RETURNING `+conversationColumns,
		userOneID, userTwoID, userOneID == initiatorID, userTwoID == initiatorID).StructScan(&conv)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the insert race; the winner's row is authoritative.
		err = r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM direct_conversations
            WHERE user_one_id=$1 AND user_two_id=$2`, userOneID, userTwoID)
		return conv, false, err
	}
	if err != nil {
		return models.DirectConversation{}, false, err
	}
	return conv, true, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int) (models.DirectConversation, error) {
	var conv models.DirectConversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM direct_conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DirectConversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForUser returns all conversations the user participates in, most
// recently updated first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.DirectConversation, error) {
	var convs []models.DirectConversation
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM direct_conversations
        WHERE user_one_id=$1 OR user_two_id=$1 ORDER BY updated_at DESC`, userID)
	return convs, err
}

// AcceptBy sets the acceptance flag for whichever slot the user occupies.
// A conversation both sides already accepted is a conflict, not a no-op.
func (r *ConversationRepo) AcceptBy(ctx context.Context, conversationID, userID int) (models.DirectConversation, error) {
	var conv models.DirectConversation
	err := r.db.QueryRowxContext(ctx, `UPDATE direct_conversations SET
        user_one_accepted = user_one_accepted OR (user_one_id=$2),
        user_two_accepted = user_two_accepted OR (user_two_id=$2),
        updated_at = NOW()
        WHERE id=$1 AND (user_one_id=$2 OR user_two_id=$2)
        AND NOT (user_one_accepted AND user_two_accepted)
        RETURNING `+conversationColumns, conversationID, userID).StructScan(&conv)
	if errors.Is(err, sql.ErrNoRows) {
		var accepted bool
		serr := r.db.GetContext(ctx, &accepted, `SELECT user_one_accepted AND user_two_accepted
            FROM direct_conversations WHERE id=$1 AND (user_one_id=$2 OR user_two_id=$2)`, conversationID, userID)
		if serr == nil && accepted {
			return models.DirectConversation{}, ErrAlreadyAccepted
		}
		return models.DirectConversation{}, ErrConversationNotFound
	}
	return conv, err
}

// Delete removes a conversation and cascades its messages, reactions, files,
// and read receipts. Used both for rejection and for leaving.
func (r *ConversationRepo) Delete(ctx context.Context, conversationID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM read_receipts WHERE messageable_type=$1 AND messageable_id=$2`, models.MessageableDirect, conversationID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM files WHERE fileable_type=$1 AND fileable_id=$2`, models.MessageableDirect, conversationID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE messageable_type=$1 AND messageable_id=$2`, models.MessageableDirect, conversationID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM direct_conversations WHERE id=$1`, conversationID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrConversationNotFound
		return err
	}

	err = tx.Commit()
	return err
}
