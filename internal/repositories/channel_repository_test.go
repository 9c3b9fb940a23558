package repositories

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/deifi86/TeamChat/internal/models"
)

func newTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestDeleteChannelLocksCompanyRowBeforeCounting(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewChannelRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id FROM channels WHERE id=$1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT id FROM companies WHERE id=$1 FOR UPDATE`)).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM channels WHERE company_id=$1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM read_receipts`)).
		WithArgs(models.MessageableChannel, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM files`)).
		WithArgs(models.MessageableChannel, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM messages`)).
		WithArgs(models.MessageableChannel, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM channels WHERE id=$1`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteChannel(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteChannelRefusesLastChannel(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewChannelRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id FROM channels WHERE id=$1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT id FROM companies WHERE id=$1 FOR UPDATE`)).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM channels WHERE company_id=$1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.DeleteChannel(context.Background(), 5)
	require.ErrorIs(t, err, ErrLastChannel)
	require.NoError(t, mock.ExpectationsWereMet())
}
