package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/mocks"
	"github.com/involved-entity/exwonder-realtime/internal/models"
	"github.com/involved-entity/exwonder-realtime/internal/ws"
)

type notifFixture struct {
	router    *Router
	hub       *ws.Hub
	repo      *mocks.NotificationRepositoryMock
	validator *mocks.TokenValidatorMock
}

func newNotifFixture() *notifFixture {
	log := zap.NewNop().Sugar()
	hub := ws.NewHub(log)
	repo := new(mocks.NotificationRepositoryMock)
	validator := new(mocks.TokenValidatorMock)
	gate := ws.NewGate(hub, validator, log)
	return &notifFixture{
		router:    NewRouter(gate, repo, log),
		hub:       hub,
		repo:      repo,
		validator: validator,
	}
}

func (f *notifFixture) newClient() *ws.Client {
	return ws.NewClient(f.hub, nil, "notifications", ws.ConnInfo{}, zap.NewNop().Sugar())
}

func (f *notifFixture) authenticate(t *testing.T, c *ws.Client, userID int) {
	t.Helper()
	f.validator.On("Validate", mock.Anything, "token").Return(userID, nil).Once()
	f.router.HandleFrame(context.Background(), c,
		[]byte(fmt.Sprintf(`{"type":"authenticate","token":"token","user_id":%d}`, userID)))
	frame := recvFrame(t, c)
	var ack models.AuthAck
	require.NoError(t, json.Unmarshal(frame, &ack))
	require.True(t, ack.Authenticated)
}

func recvFrame(t *testing.T, c *ws.Client) []byte {
	t.Helper()
	select {
	case frame := <-c.Outbound():
		return frame
	default:
		t.Fatalf("expected an outbound frame")
		return nil
	}
}

func requireNoFrame(t *testing.T, c *ws.Client) {
	t.Helper()
	select {
	case frame := <-c.Outbound():
		t.Fatalf("unexpected outbound frame: %s", frame)
	default:
	}
}

func TestListUnread(t *testing.T) {
	f := newNotifFixture()
	c := f.newClient()
	f.authenticate(t, c, 4)

	rows := []models.Notification{
		{ID: 2, RecipientID: 4, PostID: 11, CreatedAt: time.Now()},
		{ID: 1, RecipientID: 4, PostID: 10, CreatedAt: time.Now()},
	}
	f.repo.On("ListUnread", mock.Anything, 4).Return(rows, nil).Once()

	f.router.HandleFrame(context.Background(), c, []byte(`{"type":"get_unreaded_notifications"}`))

	var event models.NotificationListEvent
	require.NoError(t, json.Unmarshal(recvFrame(t, c), &event))
	require.Equal(t, models.CmdGetUnreadedNotifs, event.Type)
	require.Len(t, event.Payload, 2)
	require.Equal(t, 11, event.Payload[0].PostID)
	f.repo.AssertExpectations(t)
}

func TestMarkReadIsCallerScoped(t *testing.T) {
	f := newNotifFixture()
	c := f.newClient()
	f.authenticate(t, c, 4)

	f.repo.On("MarkRead", mock.Anything, 4, 2).Return(nil).Once()

	f.router.HandleFrame(context.Background(), c, []byte(`{"type":"mark_read","id":2}`))

	requireNoFrame(t, c)
	f.repo.AssertExpectations(t)
}

func TestMarkReadMissingID(t *testing.T) {
	f := newNotifFixture()
	c := f.newClient()
	f.authenticate(t, c, 4)

	f.router.HandleFrame(context.Background(), c, []byte(`{"type":"mark_read"}`))

	f.repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAllRead(t *testing.T) {
	f := newNotifFixture()
	c := f.newClient()
	f.authenticate(t, c, 4)

	f.repo.On("MarkAllRead", mock.Anything, 4).Return(nil).Twice()

	// idempotent, a second call is just as fine
	f.router.HandleFrame(context.Background(), c, []byte(`{"type":"mark_all_read"}`))
	f.router.HandleFrame(context.Background(), c, []byte(`{"type":"mark_all_read"}`))

	requireNoFrame(t, c)
	f.repo.AssertExpectations(t)
}

func TestNotificationCommandBeforeAuthIsDropped(t *testing.T) {
	f := newNotifFixture()
	c := f.newClient()

	f.router.HandleFrame(context.Background(), c, []byte(`{"type":"get_unreaded_notifications"}`))

	requireNoFrame(t, c)
	f.repo.AssertNotCalled(t, "ListUnread", mock.Anything, mock.Anything)
}
