package models

import "time"

// Chat is a private conversation between exactly two users. A pair of users
// has at most one chat row; deleting a chat only soft-deletes it and a later
// start_chat for the same pair revives the row.
type Chat struct {
	ID        int       `db:"id" json:"id"`
	User1ID   int       `db:"user1_id" json:"user1_id"`
	User2ID   int       `db:"user2_id" json:"user2_id"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	IsDeleted bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Companion returns the other member of the chat relative to the viewer.
func (c Chat) Companion(viewerID int) int {
	if c.User1ID == viewerID {
		return c.User2ID
	}
	return c.User1ID
}
