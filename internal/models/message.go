package models

import "time"

// Message belongs to exactly one chat. Body and attachment are both optional
// on the wire but at least one must be present; the attachment column stores
// the object-store key, not the bytes.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ChatID         int       `db:"chat_id" json:"chat_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	ReceiverID     int       `db:"receiver_id" json:"receiver_id"`
	Body           *string   `db:"body" json:"body"`
	Attachment     *string   `db:"attachment" json:"attachment"`
	AttachmentName *string   `db:"attachment_name" json:"attachment_name,omitempty"`
	IsEdit         bool      `db:"is_edit" json:"is_edit"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	IsDeleted      bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
