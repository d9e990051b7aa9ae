package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/involved-entity/exwonder-realtime/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateOrRevive(ctx context.Context, userID int, receiverID int) (models.Chat, error)
	Get(ctx context.Context, chatID int) (models.Chat, error)
	ListForUser(ctx context.Context, userID int) ([]models.Chat, error)
	MarkRead(ctx context.Context, chatID int) (models.Chat, error)
	SoftDelete(ctx context.Context, chatID int) (models.Chat, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `id, user1_id, user2_id, is_read, is_deleted, created_at`

// normalizePair orders a member pair so the same two users always map to the
// same (user1_id, user2_id) row regardless of who initiated the chat.
func normalizePair(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

// CreateOrRevive returns the chat between the two users, resurrecting a
// soft-deleted row or inserting a fresh one. A pair never owns two chats.
func (r *ChatRepo) CreateOrRevive(ctx context.Context, userID int, receiverID int) (models.Chat, error) {
	if userID == receiverID {
		return models.Chat{}, errors.New("cannot create chat with self")
	}
	user1, user2 := normalizePair(userID, receiverID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	err = tx.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE user1_id=$1 AND user2_id=$2`, user1, user2)
	switch {
	case err == nil:
		if chat.IsDeleted {
			if err = tx.QueryRowxContext(ctx, `UPDATE chats SET is_deleted = FALSE WHERE id=$1 RETURNING `+chatColumns, chat.ID).
				StructScan(&chat); err != nil {
				return models.Chat{}, err
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		if err = tx.QueryRowxContext(ctx, `INSERT INTO chats (user1_id, user2_id) VALUES ($1, $2) RETURNING `+chatColumns, user1, user2).
			StructScan(&chat); err != nil {
			return models.Chat{}, err
		}
	default:
		return models.Chat{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// Get fetches a chat by id.
func (r *ChatRepo) Get(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// ListForUser returns the user's non-deleted chats, newest first.
func (r *ChatRepo) ListForUser(ctx context.Context, userID int) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `SELECT `+chatColumns+` FROM chats
        WHERE (user1_id=$1 OR user2_id=$1) AND is_deleted = FALSE
        ORDER BY created_at DESC`, userID)
	return chats, err
}

// MarkRead flags the chat and every message in it as read.
func (r *ChatRepo) MarkRead(ctx context.Context, chatID int) (models.Chat, error) {
	return r.flag(ctx, chatID,
		`UPDATE messages SET is_read = TRUE WHERE chat_id=$1`,
		`UPDATE chats SET is_read = TRUE WHERE id=$1 RETURNING `+chatColumns)
}

// SoftDelete hides the chat and every message in it. Rows are kept so a
// later CreateOrRevive for the same pair resurrects the conversation.
func (r *ChatRepo) SoftDelete(ctx context.Context, chatID int) (models.Chat, error) {
	return r.flag(ctx, chatID,
		`UPDATE messages SET is_deleted = TRUE WHERE chat_id=$1`,
		`UPDATE chats SET is_deleted = TRUE WHERE id=$1 RETURNING `+chatColumns)
}

func (r *ChatRepo) flag(ctx context.Context, chatID int, messagesQuery, chatQuery string) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, messagesQuery, chatID); err != nil {
		return models.Chat{}, err
	}

	var chat models.Chat
	err = tx.QueryRowxContext(ctx, chatQuery, chatID).StructScan(&chat)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrChatNotFound
		return models.Chat{}, err
	}
	if err != nil {
		return models.Chat{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}
