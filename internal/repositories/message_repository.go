package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/involved-entity/exwonder-realtime/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// CreateMessageParams carries everything needed to store a new message.
type CreateMessageParams struct {
	ChatID         int
	SenderID       int
	ReceiverID     int
	Body           *string
	Attachment     *string
	AttachmentName *string
}

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, params CreateMessageParams) (models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
	ListForChat(ctx context.Context, chatID int) ([]models.Message, error)
	LastInChat(ctx context.Context, chatID int) (models.Message, error)
	Edit(ctx context.Context, messageID int, body *string, attachment *string, attachmentName *string) (models.Message, error)
	SoftDelete(ctx context.Context, messageID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, receiver_id, body, attachment, attachment_name, is_edit, is_read, is_deleted, created_at, updated_at`

// Create stores a message and flips the chat unread in the same transaction.
func (r *MessageRepo) Create(ctx context.Context, params CreateMessageParams) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, receiver_id, body, attachment, attachment_name)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		params.ChatID, params.SenderID, params.ReceiverID, params.Body, params.Attachment, params.AttachmentName).
		StructScan(&msg)
	if err != nil {
		return models.Message{}, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE chats SET is_read = FALSE WHERE id=$1`, params.ChatID)
	if err != nil {
		return models.Message{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, err
	}
	if count == 0 {
		err = ErrChatNotFound
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListForChat returns the chat's non-deleted messages, newest first.
func (r *MessageRepo) ListForChat(ctx context.Context, chatID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE chat_id=$1 AND is_deleted = FALSE
        ORDER BY created_at DESC, updated_at DESC`, chatID)
	return msgs, err
}

// LastInChat returns the newest non-deleted message of a chat.
func (r *MessageRepo) LastInChat(ctx context.Context, chatID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages
        WHERE chat_id=$1 AND is_deleted = FALSE
        ORDER BY created_at DESC LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// Edit replaces the body and optionally the attachment, marking the message
// as edited. Last write wins; concurrent edits are not surfaced.
func (r *MessageRepo) Edit(ctx context.Context, messageID int, body *string, attachment *string, attachmentName *string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages
        SET body=$2,
            attachment=COALESCE($3, attachment),
            attachment_name=COALESCE($4, attachment_name),
            is_edit=TRUE,
            updated_at=NOW()
        WHERE id=$1 RETURNING `+messageColumns,
		messageID, body, attachment, attachmentName).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDelete hides the message and recomputes the owning chat's is_read flag
// from the new newest non-deleted message, treating an emptied chat as read.
// The whole roll-up runs in one transaction.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID int) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	err = tx.QueryRowxContext(ctx, `UPDATE messages SET is_deleted = TRUE, updated_at = NOW()
        WHERE id=$1 RETURNING `+messageColumns, messageID).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrMessageNotFound
		return models.Message{}, err
	}
	if err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE chats SET is_read = COALESCE(
            (SELECT is_read FROM messages WHERE chat_id=$1 AND is_deleted = FALSE ORDER BY created_at DESC LIMIT 1),
            TRUE)
        WHERE id=$1`, msg.ChatID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}
