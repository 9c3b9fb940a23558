package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/deifi86/TeamChat/internal/models"
)

var ErrReceiptNotFound = errors.New("read receipt not found")

// ReceiptRepository abstracts per-user read watermarks.
type ReceiptRepository interface {
	UpsertReceipt(ctx context.Context, userID int, owner models.Messageable, lastReadMessageID int) (models.ReadReceipt, error)
	GetReceipt(ctx context.Context, userID int, owner models.Messageable) (models.ReadReceipt, error)
}

// ReceiptRepo is a sqlx implementation of ReceiptRepository.
type ReceiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo constructs a ReceiptRepo.
func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// UpsertReceipt overwrites the user's read watermark for the entity.
func (r *ReceiptRepo) UpsertReceipt(ctx context.Context, userID int, owner models.Messageable, lastReadMessageID int) (models.ReadReceipt, error) {
	var receipt models.ReadReceipt
	err := r.db.QueryRowxContext(ctx, `INSERT INTO read_receipts
        (user_id, messageable_type, messageable_id, last_read_message_id, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (user_id, messageable_type, messageable_id)
        DO UPDATE SET last_read_message_id = EXCLUDED.last_read_message_id, updated_at = NOW()
        RETURNING user_id, messageable_type, messageable_id, last_read_message_id, updated_at`,
		userID, owner.Type, owner.ID, lastReadMessageID).StructScan(&receipt)
	return receipt, err
}

// GetReceipt fetches the user's watermark for the entity.
func (r *ReceiptRepo) GetReceipt(ctx context.Context, userID int, owner models.Messageable) (models.ReadReceipt, error) {
	var receipt models.ReadReceipt
	err := r.db.GetContext(ctx, &receipt, `SELECT user_id, messageable_type, messageable_id, last_read_message_id, updated_at
        FROM read_receipts WHERE user_id=$1 AND messageable_type=$2 AND messageable_id=$3`,
		userID, owner.Type, owner.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReadReceipt{}, ErrReceiptNotFound
	}
	return receipt, err
}
