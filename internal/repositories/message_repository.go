package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/deifi86/TeamChat/internal/models"
)

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrMessageDeleted    = errors.New("message has been deleted")
	ErrEditWindowExpired = errors.New("edit window expired")
)

// EditWindow is how long after creation a message remains editable.
const EditWindow = 24 * time.Hour

// DefaultHistoryWindow is the lookback used when no pagination cursor is given.
const DefaultHistoryWindow = 3 * 24 * time.Hour

// CreateMessageParams carries everything needed to persist a message. Content
// and ContentIV are already encrypted by the caller.
type CreateMessageParams struct {
	Owner       models.Messageable
	SenderID    int
	Content     string
	ContentIV   string
	ContentType string
	ParentID    *int
}

// MessagePage is one page of history in ascending chronological order.
type MessagePage struct {
	Messages []models.MessageWithSender
	HasMore  bool
}

// MessageRepository abstracts message persistence and cursor pagination.
type MessageRepository interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (models.MessageWithSender, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	GetMessageWithSender(ctx context.Context, messageID int) (models.MessageWithSender, error)
	ListMessages(ctx context.Context, owner models.Messageable, before *models.Message, limit int) (MessagePage, error)
	UpdateContent(ctx context.Context, messageID int, content, contentIV string) (models.Message, error)
	SoftDelete(ctx context.Context, messageID int) error
	LatestMessage(ctx context.Context, owner models.Messageable) (models.MessageWithSender, error)
	UnreadCount(ctx context.Context, owner models.Messageable, userID int) (int, error)
	ListReactionsForMessages(ctx context.Context, messageIDs []int) (map[int][]models.MessageReaction, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, messageable_type, messageable_id, sender_id, content, content_iv, content_type, parent_id, edited_at, deleted_at, created_at`

const messageWithSenderColumns = `m.id, m.messageable_type, m.messageable_id, m.sender_id, m.content, m.content_iv, m.content_type,
        m.parent_id, m.edited_at, m.deleted_at, m.created_at,
        u.username AS sender_username, u.avatar_path AS sender_avatar_path, u.status AS sender_status`

// CreateMessage persists a message and returns it joined with sender info.
func (r *MessageRepo) CreateMessage(ctx context.Context, params CreateMessageParams) (models.MessageWithSender, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages
        (messageable_type, messageable_id, sender_id, content, content_iv, content_type, parent_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+messageColumns,
		params.Owner.Type, params.Owner.ID, params.SenderID, params.Content, params.ContentIV, params.ContentType, params.ParentID).StructScan(&msg)
	if err != nil {
		return models.MessageWithSender{}, err
	}

	if params.Owner.Type == models.MessageableDirect {
		// Keep the conversation's recency ordering in sync.
		_, _ = r.db.ExecContext(ctx, `UPDATE direct_conversations SET updated_at=NOW() WHERE id=$1`, params.Owner.ID)
	}

	return r.GetMessageWithSender(ctx, msg.ID)
}

// GetMessage fetches a message row, including soft-deleted ones.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetMessageWithSender fetches a message joined with its sender's profile.
func (r *MessageRepo) GetMessageWithSender(ctx context.Context, messageID int) (models.MessageWithSender, error) {
	var msg models.MessageWithSender
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageWithSenderColumns+`
        FROM messages m INNER JOIN users u ON u.id = m.sender_id WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageWithSender{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages pages history newest-first from the cursor, then re-reverses
// the page to ascending order so it renders chronologically. It fetches one
// row beyond the limit to learn whether more history exists without a second
// count query; the cursor bound is exclusive.
func (r *MessageRepo) ListMessages(ctx context.Context, owner models.Messageable, before *models.Message, limit int) (MessagePage, error) {
	query := `SELECT ` + messageWithSenderColumns + `
        FROM messages m INNER JOIN users u ON u.id = m.sender_id
        WHERE m.messageable_type=$1 AND m.messageable_id=$2 AND m.deleted_at IS NULL`
	args := []interface{}{owner.Type, owner.ID}

	if before != nil {
		query += ` AND m.created_at < $3`
		args = append(args, before.CreatedAt)
	} else {
		query += ` AND m.created_at >= $3`
		args = append(args, time.Now().Add(-DefaultHistoryWindow))
	}

	query += ` ORDER BY m.created_at DESC LIMIT $4`
	args = append(args, limit+1)

	var msgs []models.MessageWithSender
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return MessagePage{}, err
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return MessagePage{Messages: msgs, HasMore: hasMore}, nil
}

// UpdateContent re-encrypts a message body and stamps edited_at. Soft-deleted
// rows are not editable.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int, content, contentIV string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET content=$2, content_iv=$3, edited_at=NOW()
        WHERE id=$1 AND deleted_at IS NULL
        RETURNING `+messageColumns, messageID, content, contentIV).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, r.missingOrDeleted(ctx, messageID)
	}
	return msg, err
}

// missingOrDeleted distinguishes a vanished row from a soft-deleted one.
func (r *MessageRepo) missingOrDeleted(ctx context.Context, messageID int) error {
	var deleted bool
	err := r.db.GetContext(ctx, &deleted, `SELECT deleted_at IS NOT NULL FROM messages WHERE id=$1`, messageID)
	if err == nil && deleted {
		return ErrMessageDeleted
	}
	return ErrMessageNotFound
}

// SoftDelete marks a message deleted. The row is retained but its content
// becomes inaccessible to formatters. Deleting twice fails.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return r.missingOrDeleted(ctx, messageID)
	}
	return nil
}

// LatestMessage returns the newest non-deleted message for the owner.
func (r *MessageRepo) LatestMessage(ctx context.Context, owner models.Messageable) (models.MessageWithSender, error) {
	var msg models.MessageWithSender
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageWithSenderColumns+`
        FROM messages m INNER JOIN users u ON u.id = m.sender_id
        WHERE m.messageable_type=$1 AND m.messageable_id=$2 AND m.deleted_at IS NULL
        ORDER BY m.created_at DESC LIMIT 1`, owner.Type, owner.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageWithSender{}, ErrMessageNotFound
	}
	return msg, err
}

// UnreadCount counts messages from other users past the viewer's read
// watermark. A missing receipt means everything is unread.
func (r *MessageRepo) UnreadCount(ctx context.Context, owner models.Messageable, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        WHERE m.messageable_type=$1 AND m.messageable_id=$2
        AND m.deleted_at IS NULL AND m.sender_id <> $3
        AND m.id > COALESCE((SELECT last_read_message_id FROM read_receipts
            WHERE user_id=$3 AND messageable_type=$1 AND messageable_id=$2), 0)`,
		owner.Type, owner.ID, userID)
	return count, err
}

// ListReactionsForMessages loads reactions for a batch of messages, keyed by
// message id.
func (r *MessageRepo) ListReactionsForMessages(ctx context.Context, messageIDs []int) (map[int][]models.MessageReaction, error) {
	if len(messageIDs) == 0 {
		return map[int][]models.MessageReaction{}, nil
	}

	query, args, err := sqlx.In(`SELECT id, message_id, user_id, emoji, created_at
        FROM message_reactions WHERE message_id IN (?) ORDER BY created_at ASC`, messageIDs)
	if err != nil {
		return nil, err
	}

	var reactions []models.MessageReaction
	if err := r.db.SelectContext(ctx, &reactions, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	byMessage := make(map[int][]models.MessageReaction, len(messageIDs))
	for _, reaction := range reactions {
		byMessage[reaction.MessageID] = append(byMessage[reaction.MessageID], reaction)
	}
	return byMessage, nil
}
