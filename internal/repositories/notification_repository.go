package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/involved-entity/exwonder-realtime/internal/models"
)

// NotificationRepository defines interactions for follower notifications.
type NotificationRepository interface {
	BulkCreate(ctx context.Context, postID int, recipientIDs []int) ([]models.Notification, error)
	ListUnread(ctx context.Context, userID int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID int, notificationID int) error
	MarkAllRead(ctx context.Context, userID int) error
}

// NotificationRepo is a sqlx-backed implementation.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, recipient_id, post_id, is_read, created_at`

// BulkCreate inserts one notification per recipient atomically.
func (r *NotificationRepo) BulkCreate(ctx context.Context, postID int, recipientIDs []int) ([]models.Notification, error) {
	if len(recipientIDs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	notifications := make([]models.Notification, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		var n models.Notification
		if err = tx.QueryRowxContext(ctx, `INSERT INTO notifications (recipient_id, post_id)
            VALUES ($1, $2) RETURNING `+notificationColumns, recipientID, postID).
			StructScan(&n); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ListUnread returns the user's unread notifications, newest first.
func (r *NotificationRepo) ListUnread(ctx context.Context, userID int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.SelectContext(ctx, &notifications, `SELECT `+notificationColumns+` FROM notifications
        WHERE recipient_id=$1 AND is_read = FALSE
        ORDER BY created_at DESC`, userID)
	return notifications, err
}

// MarkRead flags a single notification read, scoped to its owner. Marking a
// notification that belongs to someone else is a silent no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID int, notificationID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE
        WHERE id=$1 AND recipient_id=$2`, notificationID, userID)
	return err
}

// MarkAllRead flags every unread notification of the user. Idempotent.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE
        WHERE recipient_id=$1 AND is_read = FALSE`, userID)
	return err
}
