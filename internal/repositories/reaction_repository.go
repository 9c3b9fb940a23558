package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/deifi86/TeamChat/internal/models"
)

var ErrReactionNotFound = errors.New("reaction not found")

// Toggle outcomes. Callers branch on these for UI and event-type selection.
const (
	ToggleAdded   = "added"
	ToggleRemoved = "removed"
)

// ReactionRepository abstracts reaction persistence. The UNIQUE constraint on
// (message_id, user_id, emoji) is the authoritative guard against concurrent
// duplicate adds; ON CONFLICT turns the violation into "already exists".
type ReactionRepository interface {
	AddReaction(ctx context.Context, messageID, userID int, emoji string) (models.MessageReaction, bool, error)
	RemoveReaction(ctx context.Context, messageID, userID int, emoji string) error
	ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.MessageReaction, string, error)
	ListReactions(ctx context.Context, messageID int) ([]models.MessageReaction, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

const reactionColumns = `id, message_id, user_id, emoji, created_at`

// AddReaction inserts a reaction, idempotently. The second return value
// reports whether a new row was created; false means the exact triple
// already existed and is returned unchanged.
func (r *ReactionRepo) AddReaction(ctx context.Context, messageID, userID int, emoji string) (models.MessageReaction, bool, error) {
	var reaction models.MessageReaction
	err := r.db.QueryRowxContext(ctx, `INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id, emoji) DO NOTHING
        RETURNING `+reactionColumns, messageID, userID, emoji).StructScan(&reaction)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.GetContext(ctx, &reaction, `SELECT `+reactionColumns+` FROM message_reactions
            WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
		return reaction, false, err
	}
	if err != nil {
		return models.MessageReaction{}, false, err
	}
	return reaction, true, nil
}

// RemoveReaction deletes the triple, failing if it does not exist.
func (r *ReactionRepo) RemoveReaction(ctx context.Context, messageID, userID int, emoji string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`,
		messageID, userID, emoji)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrReactionNotFound
	}
	return nil
}

// ToggleReaction removes the reaction if present, else adds it, and reports
// which branch was taken. Two racing toggles resolve through the delete's
// row count and the add's uniqueness guard, never as a duplicate row.
func (r *ReactionRepo) ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.MessageReaction, string, error) {
	err := r.RemoveReaction(ctx, messageID, userID, emoji)
	if err == nil {
		return models.MessageReaction{}, ToggleRemoved, nil
	}
	if !errors.Is(err, ErrReactionNotFound) {
		return models.MessageReaction{}, "", err
	}

	reaction, _, err := r.AddReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return models.MessageReaction{}, "", err
	}
	return reaction, ToggleAdded, nil
}

// ListReactions returns raw reaction rows for a message in insertion order.
func (r *ReactionRepo) ListReactions(ctx context.Context, messageID int) ([]models.MessageReaction, error) {
	var reactions []models.MessageReaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT `+reactionColumns+` FROM message_reactions
        WHERE message_id=$1 ORDER BY created_at ASC`, messageID)
	return reactions, err
}
