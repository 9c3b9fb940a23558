package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func conversationRows(id, userOneID, userTwoID int, oneAccepted, twoAccepted bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_one_id", "user_two_id", "user_one_accepted", "user_two_accepted", "created_at", "updated_at",
	}).AddRow(id, userOneID, userTwoID, oneAccepted, twoAccepted, now, now)
}

func TestFindOrCreateCanonicalizesPairOrder(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewConversationRepo(db)

	// Initiator has the larger id; the lookup must still use (4, 9).
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_one_id=$1 AND user_two_id=$2`)).
		WithArgs(4, 9).
		WillReturnRows(conversationRows(11, 4, 9, true, false))

	conv, created, err := repo.FindOrCreate(context.Background(), 9, 4)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 4, conv.UserOneID)
	require.Equal(t, 9, conv.UserTwoID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateSetsInitiatorAcceptance(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_one_id=$1 AND user_two_id=$2`)).
		WithArgs(4, 9).
		WillReturnError(sql.ErrNoRows)
	// Initiator 9 lands in the user_two slot, so only that flag starts true.
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO direct_conversations`)).
		WithArgs(4, 9, false, true).
		WillReturnRows(conversationRows(11, 4, 9, false, true))

	conv, created, err := repo.FindOrCreate(context.Background(), 9, 4)
	require.NoError(t, err)
	require.True(t, created)
	require.False(t, conv.UserOneAccepted)
	require.True(t, conv.UserTwoAccepted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateLostInsertRaceRereadsWinner(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_one_id=$1 AND user_two_id=$2`)).
		WithArgs(4, 9).
		WillReturnError(sql.ErrNoRows)
	// ON CONFLICT DO NOTHING returns no row when another insert won.
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO direct_conversations`)).
		WithArgs(4, 9, true, false).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_one_id=$1 AND user_two_id=$2`)).
		WithArgs(4, 9).
		WillReturnRows(conversationRows(11, 4, 9, true, false))

	conv, created, err := repo.FindOrCreate(context.Background(), 4, 9)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 11, conv.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateRejectsSelfConversation(t *testing.T) {
	db, _ := newTestDB(t)
	repo := NewConversationRepo(db)

	_, _, err := repo.FindOrCreate(context.Background(), 7, 7)
	require.ErrorIs(t, err, ErrSelfConversation)
}
