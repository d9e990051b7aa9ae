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

func messageRows(id, chatID int, body interface{}, isRead bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "chat_id", "sender_id", "receiver_id", "body", "attachment",
		"attachment_name", "is_edit", "is_read", "is_deleted", "created_at", "updated_at",
	}).AddRow(id, chatID, 1, 2, body, nil, nil, false, isRead, false, time.Now(), time.Now())
}

func TestCreateMessageFlipsChatUnread(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepo(db)
	body := "hi"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages (chat_id, sender_id, receiver_id, body, attachment, attachment_name)")).
		WithArgs(5, 1, 2, "hi", nil, nil).
		WillReturnRows(messageRows(11, 5, "hi", false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET is_read = FALSE WHERE id=$1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := repo.Create(context.Background(), CreateMessageParams{
		ChatID: 5, SenderID: 1, ReceiverID: 2, Body: &body,
	})

	require.NoError(t, err)
	require.Equal(t, 11, msg.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMessageUnknownChat(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepo(db)
	body := "hi"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages (chat_id, sender_id, receiver_id, body, attachment, attachment_name)")).
		WithArgs(99, 1, 2, "hi", nil, nil).
		WillReturnRows(messageRows(11, 99, "hi", false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET is_read = FALSE WHERE id=$1")).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), CreateMessageParams{
		ChatID: 99, SenderID: 1, ReceiverID: 2, Body: &body,
	})

	require.ErrorIs(t, err, ErrChatNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteMessageRollsUpChatIsRead(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepo(db)

	// the chat flag is recomputed from the newest surviving message, in the
	// same transaction as the delete
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE messages SET is_deleted = TRUE, updated_at = NOW()")).
		WithArgs(7).
		WillReturnRows(messageRows(7, 5, "bye", false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET is_read = COALESCE(")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := repo.SoftDelete(context.Background(), 7)

	require.NoError(t, err)
	require.Equal(t, 5, msg.ChatID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteMessageNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE messages SET is_deleted = TRUE, updated_at = NOW()")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.SoftDelete(context.Background(), 99)

	require.ErrorIs(t, err, ErrMessageNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditMessageKeepsAttachmentWhenOmitted(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMessageRepo(db)
	body := "hi, edited"

	mock.ExpectQuery(regexp.QuoteMeta("SET body=$2,")).
		WithArgs(11, "hi, edited", nil, nil).
		WillReturnRows(messageRows(11, 5, "hi, edited", false))

	msg, err := repo.Edit(context.Background(), 11, &body, nil, nil)

	require.NoError(t, err)
	require.Equal(t, "hi, edited", *msg.Body)
	require.NoError(t, mock.ExpectationsWereMet())
}
