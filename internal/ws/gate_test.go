package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/models"
)

type staticValidator struct {
	userID int
	err    error
}

func (v staticValidator) Validate(ctx context.Context, token string) (int, error) {
	return v.userID, v.err
}

func recvAck(t *testing.T, c *Client) models.AuthAck {
	t.Helper()
	select {
	case frame := <-c.Outbound():
		var ack models.AuthAck
		require.NoError(t, json.Unmarshal(frame, &ack))
		return ack
	default:
		t.Fatalf("expected an auth ack")
		return models.AuthAck{}
	}
}

func TestGateAuthenticateSuccess(t *testing.T) {
	log := zap.NewNop().Sugar()
	hub := NewHub(log)
	gate := NewGate(hub, staticValidator{userID: 7}, log)
	c := newTestClient(hub)

	ok := gate.Authenticate(context.Background(), c, "valid-token", 7)

	require.True(t, ok)
	require.True(t, c.Authenticated())
	require.Equal(t, 7, c.UserID())
	require.Equal(t, []string{UserGroup(7)}, hub.Groups(c))
	require.True(t, recvAck(t, c).Authenticated)
}

func TestGateAuthenticateInvalidToken(t *testing.T) {
	log := zap.NewNop().Sugar()
	hub := NewHub(log)
	gate := NewGate(hub, staticValidator{err: context.DeadlineExceeded}, log)
	c := newTestClient(hub)

	ok := gate.Authenticate(context.Background(), c, "bad-token", 7)

	require.False(t, ok)
	require.False(t, c.Authenticated())
	require.Empty(t, hub.Groups(c))
	require.False(t, recvAck(t, c).Authenticated)
}

func TestGateAuthenticateZeroUserID(t *testing.T) {
	log := zap.NewNop().Sugar()
	hub := NewHub(log)
	gate := NewGate(hub, staticValidator{userID: 7}, log)
	c := newTestClient(hub)

	ok := gate.Authenticate(context.Background(), c, "valid-token", 0)

	require.False(t, ok)
	require.False(t, c.Authenticated())
	require.False(t, recvAck(t, c).Authenticated)
}

func TestGateAuthenticateRetryAfterFailure(t *testing.T) {
	log := zap.NewNop().Sugar()
	hub := NewHub(log)
	c := newTestClient(hub)

	failing := NewGate(hub, staticValidator{err: context.DeadlineExceeded}, log)
	require.False(t, failing.Authenticate(context.Background(), c, "bad", 7))
	require.False(t, recvAck(t, c).Authenticated)

	succeeding := NewGate(hub, staticValidator{userID: 7}, log)
	require.True(t, succeeding.Authenticate(context.Background(), c, "good", 7))
	require.True(t, recvAck(t, c).Authenticated)
	require.Equal(t, 7, c.UserID())
}
