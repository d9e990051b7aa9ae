package notifications

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/events"
	"github.com/involved-entity/exwonder-realtime/internal/models"
	"github.com/involved-entity/exwonder-realtime/internal/observability"
	"github.com/involved-entity/exwonder-realtime/internal/repositories"
)

// FanOut reacts to the post-creation workflow of the main backend: it
// bulk-creates one notification per follower of the actor and pushes a
// notify event to every follower's personal group.
type FanOut struct {
	followers     repositories.FollowerRepository
	notifications repositories.NotificationRepository
	dispatcher    *events.Dispatcher
	log           *zap.SugaredLogger
}

// NewFanOut constructs a FanOut trigger.
func NewFanOut(
	followers repositories.FollowerRepository,
	notifications repositories.NotificationRepository,
	dispatcher *events.Dispatcher,
	log *zap.SugaredLogger,
) *FanOut {
	return &FanOut{
		followers:     followers,
		notifications: notifications,
		dispatcher:    dispatcher,
		log:           log,
	}
}

// PostCreated creates and delivers notifications for a freshly published
// post. Delivery is best-effort to currently-connected followers; offline
// followers pick the rows up through get_unreaded_notifications.
func (f *FanOut) PostCreated(ctx context.Context, actorID, postID int) error {
	ctx, span := otel.Tracer("exwonder-realtime/notifications").Start(ctx, "fanout.post_created")
	defer span.End()

	followerIDs, err := f.followers.ListFollowerIDs(ctx, actorID)
	if err != nil {
		return err
	}

	notifications, err := f.notifications.BulkCreate(ctx, postID, followerIDs)
	if err != nil {
		return err
	}

	for _, n := range notifications {
		f.dispatcher.Notify(n.RecipientID, models.NewNotificationPayload(n))
	}

	observability.AddNotificationsFannedOut(len(notifications))
	f.log.Infow("notifications fanned out", "actor_id", actorID, "post_id", postID, "count", len(notifications))
	return nil
}

// Handler exposes the trigger to the posts workflow over HTTP.
func (f *FanOut) Handler(c *gin.Context) {
	var req struct {
		ActorID int `json:"actor_id" binding:"required"`
		PostID  int `json:"post_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := f.PostCreated(c.Request.Context(), req.ActorID, req.PostID); err != nil {
		f.log.Errorw("fan out notifications", "actor_id", req.ActorID, "post_id", req.PostID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fan out notifications"})
		return
	}

	c.Status(http.StatusAccepted)
}
