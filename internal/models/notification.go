package models

import "time"

// Notification tells a follower that someone they follow published a post.
type Notification struct {
	ID          int       `db:"id" json:"id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	PostID      int       `db:"post_id" json:"post_id"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
