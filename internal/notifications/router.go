package notifications

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/models"
	"github.com/involved-entity/exwonder-realtime/internal/repositories"
	"github.com/involved-entity/exwonder-realtime/internal/ws"
)

// Router serves the notification channel. Authentication joins only the
// personal group; no chat groups are ever joined here.
type Router struct {
	gate          *ws.Gate
	notifications repositories.NotificationRepository
	log           *zap.SugaredLogger
}

// NewRouter constructs a notifications Router.
func NewRouter(gate *ws.Gate, notifications repositories.NotificationRepository, log *zap.SugaredLogger) *Router {
	return &Router{gate: gate, notifications: notifications, log: log}
}

// HandleFrame decodes and executes one inbound frame. Commands before
// authentication and unknown types are dropped without a response.
func (r *Router) HandleFrame(ctx context.Context, c *ws.Client, frame []byte) {
	var cmd models.Command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		r.log.Debugw("malformed frame", "conn_id", c.ID(), "err", err)
		return
	}

	if cmd.Type == models.CmdAuthenticate {
		r.gate.Authenticate(ctx, c, cmd.Token, cmd.UserID)
		return
	}
	if !c.Authenticated() {
		return
	}

	switch cmd.Type {
	case models.CmdGetUnreadedNotifs:
		r.listUnread(ctx, c)
	case models.CmdMarkRead:
		r.markRead(ctx, c, cmd.ID)
	case models.CmdMarkAllRead:
		r.markAllRead(ctx, c)
	default:
		// unknown types are ignored
	}
}

func (r *Router) listUnread(ctx context.Context, c *ws.Client) {
	notifications, err := r.notifications.ListUnread(ctx, c.UserID())
	if err != nil {
		r.log.Warnw("list unread notifications", "user_id", c.UserID(), "err", err)
		return
	}

	payload := make([]models.NotificationPayload, 0, len(notifications))
	for _, n := range notifications {
		payload = append(payload, models.NewNotificationPayload(n))
	}

	c.SendJSON(models.NotificationListEvent{Type: models.CmdGetUnreadedNotifs, Payload: payload})
}

// markRead is scoped to the caller: marking someone else's notification is a
// silent no-op, not an error.
func (r *Router) markRead(ctx context.Context, c *ws.Client, notificationID int) {
	if notificationID == 0 {
		return
	}
	if err := r.notifications.MarkRead(ctx, c.UserID(), notificationID); err != nil {
		r.log.Warnw("mark notification read", "user_id", c.UserID(), "id", notificationID, "err", err)
	}
}

func (r *Router) markAllRead(ctx context.Context, c *ws.Client) {
	if err := r.notifications.MarkAllRead(ctx, c.UserID()); err != nil {
		r.log.Warnw("mark all notifications read", "user_id", c.UserID(), "err", err)
	}
}
