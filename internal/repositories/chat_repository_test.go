package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func chatRows(id, user1, user2 int, isRead, isDeleted bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user1_id", "user2_id", "is_read", "is_deleted", "created_at"}).
		AddRow(id, user1, user2, isRead, isDeleted, time.Now())
}

func TestNormalizePair(t *testing.T) {
	cases := []struct {
		a, b         int
		want1, want2 int
	}{
		{1, 2, 1, 2},
		{2, 1, 1, 2},
		{7, 7, 7, 7},
	}

	for _, tc := range cases {
		got1, got2 := normalizePair(tc.a, tc.b)
		if got1 != tc.want1 || got2 != tc.want2 {
			t.Fatalf("normalizePair(%d, %d) = (%d, %d), want (%d, %d)",
				tc.a, tc.b, got1, got2, tc.want1, tc.want2)
		}
	}
}

func TestCreateOrReviveRevivesDeletedChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepo(db)

	// the initiator is the higher id; the lookup must still hit (1, 2)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user1_id, user2_id, is_read, is_deleted, created_at FROM chats WHERE user1_id=$1 AND user2_id=$2")).
		WithArgs(1, 2).
		WillReturnRows(chatRows(3, 1, 2, true, true))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE chats SET is_deleted = FALSE WHERE id=$1 RETURNING")).
		WithArgs(3).
		WillReturnRows(chatRows(3, 1, 2, true, false))
	mock.ExpectCommit()

	chat, err := repo.CreateOrRevive(context.Background(), 2, 1)

	require.NoError(t, err)
	require.Equal(t, 3, chat.ID)
	require.False(t, chat.IsDeleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrReviveReturnsLiveChatUntouched(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user1_id, user2_id, is_read, is_deleted, created_at FROM chats WHERE user1_id=$1 AND user2_id=$2")).
		WithArgs(1, 2).
		WillReturnRows(chatRows(3, 1, 2, false, false))
	mock.ExpectCommit()

	chat, err := repo.CreateOrRevive(context.Background(), 1, 2)

	require.NoError(t, err)
	require.Equal(t, 3, chat.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrReviveInsertsFreshChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user1_id, user2_id, is_read, is_deleted, created_at FROM chats WHERE user1_id=$1 AND user2_id=$2")).
		WithArgs(1, 2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chats (user1_id, user2_id) VALUES ($1, $2) RETURNING")).
		WithArgs(1, 2).
		WillReturnRows(chatRows(4, 1, 2, false, false))
	mock.ExpectCommit()

	chat, err := repo.CreateOrRevive(context.Background(), 2, 1)

	require.NoError(t, err)
	require.Equal(t, 4, chat.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrReviveRejectsSelfChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepo(db)

	_, err := repo.CreateOrRevive(context.Background(), 7, 7)

	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadFlagsMessagesAndChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_read = TRUE WHERE chat_id=$1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE chats SET is_read = TRUE WHERE id=$1 RETURNING")).
		WithArgs(5).
		WillReturnRows(chatRows(5, 1, 2, true, false))
	mock.ExpectCommit()

	chat, err := repo.MarkRead(context.Background(), 5)

	require.NoError(t, err)
	require.True(t, chat.IsRead)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadUnknownChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_read = TRUE WHERE chat_id=$1")).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE chats SET is_read = TRUE WHERE id=$1 RETURNING")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.MarkRead(context.Background(), 99)

	require.ErrorIs(t, err, ErrChatNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteChatFlagsMessagesAndChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_deleted = TRUE WHERE chat_id=$1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE chats SET is_deleted = TRUE WHERE id=$1 RETURNING")).
		WithArgs(5).
		WillReturnRows(chatRows(5, 1, 2, false, true))
	mock.ExpectCommit()

	chat, err := repo.SoftDelete(context.Background(), 5)

	require.NoError(t, err)
	require.True(t, chat.IsDeleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
