package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway upgrades HTTP requests into websocket clients. The transport
// handshake is accepted immediately so the client can send the auth frame;
// authentication happens in-band through the Gate.
type Gateway struct {
	hub           *Hub
	messenger     Router
	notifications Router
	log           *zap.SugaredLogger
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, messenger, notifications Router, log *zap.SugaredLogger) *Gateway {
	return &Gateway{hub: hub, messenger: messenger, notifications: notifications, log: log}
}

// Messenger handles the chat websocket endpoint.
func (g *Gateway) Messenger(c *gin.Context) {
	g.handle(c, "messenger", g.messenger)
}

// Notifications handles the notification websocket endpoint.
func (g *Gateway) Notifications(c *gin.Context) {
	g.handle(c, "notifications", g.notifications)
}

func (g *Gateway) handle(c *gin.Context, channel string, router Router) {
	_, span := otel.Tracer("exwonder-realtime/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Debugw("websocket upgrade failed", "channel", channel, "err", err)
		return
	}

	info := InfoFromRequest(c.Request, span.SpanContext().TraceID().String())
	client := NewClient(g.hub, conn, channel, info, g.log)

	// Detach from the request context: closing the socket must not cancel
	// an in-flight command transaction.
	go client.Run(context.Background(), router)
}
