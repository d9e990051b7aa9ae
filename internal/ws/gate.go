package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/models"
	"github.com/involved-entity/exwonder-realtime/internal/observability"
)

// TokenValidator is the credential collaborator: given a bearer token it
// returns the owning user id or an error for an invalid/expired token.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (int, error)
}

// Gate runs the per-socket auth handshake. A connection starts
// unauthenticated, may retry authenticate any number of times, and every
// other command is dropped until the handshake succeeds.
type Gate struct {
	hub       *Hub
	validator TokenValidator
	log       *zap.SugaredLogger
}

// NewGate constructs a Gate.
func NewGate(hub *Hub, validator TokenValidator, log *zap.SugaredLogger) *Gate {
	return &Gate{hub: hub, validator: validator, log: log}
}

// Authenticate validates the token and, on success, binds the connection to
// the claimed user and joins its personal group, no chat groups yet. The
// client always receives an explicit ack, success or failure.
func (g *Gate) Authenticate(ctx context.Context, c *Client, token string, userID int) bool {
	if _, err := g.validator.Validate(ctx, token); err != nil || userID == 0 {
		observability.IncWSEvent(c.Channel(), "ws_auth_failed")
		c.SendJSON(models.AuthAck{Authenticated: false})
		return false
	}

	c.BindUser(userID)
	g.hub.Join(c, UserGroup(userID))
	observability.IncWSEvent(c.Channel(), "ws_auth_ok")
	c.SendJSON(models.AuthAck{Authenticated: true})
	return true
}
