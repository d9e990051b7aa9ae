package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// FollowerRepository is a read-only view of the follow graph, consumed by the
// notification fan-out. The graph itself is owned by the main backend.
type FollowerRepository interface {
	ListFollowerIDs(ctx context.Context, userID int) ([]int, error)
}

// FollowerRepo is a sqlx-backed implementation.
type FollowerRepo struct {
	db *sqlx.DB
}

// NewFollowerRepo constructs a FollowerRepo.
func NewFollowerRepo(db *sqlx.DB) *FollowerRepo {
	return &FollowerRepo{db: db}
}

// ListFollowerIDs returns the ids of everyone following the user.
func (r *FollowerRepo) ListFollowerIDs(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT follower_id FROM followers WHERE user_id=$1 ORDER BY follower_id`, userID)
	return ids, err
}
