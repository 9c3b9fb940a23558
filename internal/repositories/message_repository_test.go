package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/deifi86/TeamChat/internal/models"
)

func messageRowColumns() []string {
	return []string{
		"id", "messageable_type", "messageable_id", "sender_id", "content", "content_iv", "content_type",
		"parent_id", "edited_at", "deleted_at", "created_at",
		"sender_username", "sender_avatar_path", "sender_status",
	}
}

func addMessageRow(rows *sqlmock.Rows, id int, createdAt time.Time) *sqlmock.Rows {
	return rows.AddRow(id, models.MessageableChannel, 3, 1, "cipher", "iv", "text",
		nil, nil, nil, createdAt, "anna", nil, models.StatusAvailable)
}

func TestListMessagesTrimsOverfetchAndReverses(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewMessageRepo(db)

	owner := models.Messageable{Type: models.MessageableChannel, ID: 3}
	cursor := &models.Message{ID: 40, CreatedAt: time.Now()}

	// One extra row is requested to detect more history; the page itself
	// keeps only the newest `limit` rows, oldest first.
	rows := sqlmock.NewRows(messageRowColumns())
	addMessageRow(rows, 30, cursor.CreatedAt.Add(-1*time.Minute))
	addMessageRow(rows, 20, cursor.CreatedAt.Add(-2*time.Minute))
	addMessageRow(rows, 10, cursor.CreatedAt.Add(-3*time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY m.created_at DESC LIMIT $4`)).
		WithArgs(owner.Type, owner.ID, cursor.CreatedAt, 3).
		WillReturnRows(rows)

	page, err := repo.ListMessages(context.Background(), owner, cursor, 2)
	require.NoError(t, err)
	require.True(t, page.HasMore)
	require.Len(t, page.Messages, 2)
	require.Equal(t, 20, page.Messages[0].ID)
	require.Equal(t, 30, page.Messages[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessagesExactPageHasNoMore(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewMessageRepo(db)

	owner := models.Messageable{Type: models.MessageableChannel, ID: 3}
	cursor := &models.Message{ID: 40, CreatedAt: time.Now()}

	rows := sqlmock.NewRows(messageRowColumns())
	addMessageRow(rows, 20, cursor.CreatedAt.Add(-2*time.Minute))
	addMessageRow(rows, 10, cursor.CreatedAt.Add(-3*time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY m.created_at DESC LIMIT $4`)).
		WithArgs(owner.Type, owner.ID, cursor.CreatedAt, 3).
		WillReturnRows(rows)

	page, err := repo.ListMessages(context.Background(), owner, cursor, 2)
	require.NoError(t, err)
	require.False(t, page.HasMore)
	require.Len(t, page.Messages, 2)
	require.Equal(t, 10, page.Messages[0].ID)
	require.Equal(t, 20, page.Messages[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
