package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBufferSize = 256
)

// Router handles decoded inbound frames for one channel kind.
type Router interface {
	HandleFrame(ctx context.Context, c *Client, frame []byte)
}

// ConnInfo captures handshake metadata used for audit events.
type ConnInfo struct {
	ConnID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Client is one live websocket connection. Inbound frames are processed
// strictly in arrival order by the read loop; outbound frames go through a
// bounded buffer drained by the write loop.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	log     *zap.SugaredLogger
	channel string
	info    ConnInfo

	// userID is written only by the connection's own read loop (via the
	// gate) and read by broadcast paths; zero means unauthenticated.
	userID int
}

// NewClient wraps an accepted websocket connection. The conn may be nil in
// tests; only Run touches it.
func NewClient(hub *Hub, conn *websocket.Conn, channel string, info ConnInfo, log *zap.SugaredLogger) *Client {
	if info.ConnID == "" {
		info.ConnID = uuid.NewString()
	}
	if info.ConnectedAt.IsZero() {
		info.ConnectedAt = time.Now()
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		log:     log,
		channel: channel,
		info:    info,
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.info.ConnID }

// Info returns the handshake metadata.
func (c *Client) Info() ConnInfo { return c.info }

// Channel returns the channel kind ("messenger" or "notifications").
func (c *Client) Channel() string { return c.channel }

// UserID returns the authenticated user id, zero while unauthenticated.
func (c *Client) UserID() int { return c.userID }

// Authenticated reports whether the handshake completed.
func (c *Client) Authenticated() bool { return c.userID != 0 }

// BindUser marks the connection authenticated as the given user.
func (c *Client) BindUser(userID int) { c.userID = userID }

// Enqueue offers a frame to the outbound buffer without blocking. It reports
// false when the connection is closed or the buffer is full; the frame is
// dropped in both cases.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// SendJSON marshals and enqueues a frame addressed to this connection only.
func (c *Client) SendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Errorw("marshal outbound frame", "err", err)
		return
	}
	if !c.Enqueue(payload) {
		observability.IncEventDropped()
	}
}

// Outbound exposes the send buffer; consumed by the write loop and by tests.
func (c *Client) Outbound() <-chan []byte { return c.send }

// Run drives the connection until the peer goes away: a write loop draining
// the send buffer and the read loop feeding frames to the router in order.
// The context is detached from the upgrade request so an in-flight command
// keeps its transaction even while the socket is closing.
func (c *Client) Run(ctx context.Context, router Router) {
	observability.IncWSActive(c.channel)
	observability.IncWSEvent(c.channel, "ws_connect")
	c.publishLifecycleEvent(ctx, "ws_connect", "")

	go c.writeLoop()

	var closeReason string
	defer func() {
		close(c.done)
		c.hub.LeaveAll(c)
		c.conn.Close()
		observability.DecWSActive(c.channel)
		observability.IncWSEvent(c.channel, "ws_disconnect")
		c.publishLifecycleEvent(ctx, "ws_disconnect", closeReason)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(c.channel, "ws_error")
				c.publishLifecycleEvent(ctx, "ws_error", closeReason)
			}
			return
		}
		router.HandleFrame(ctx, c, frame)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debugw("websocket write error", "conn_id", c.info.ConnID, "err", err)
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) publishLifecycleEvent(ctx context.Context, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"channel":     c.channel,
			"event":       event,
			"conn_id":     c.info.ConnID,
			"duration_ms": time.Since(c.info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   c.userID,
			"device_id": c.info.DeviceID,
			"ip":        c.info.IP,
		},
	}

	headers := observability.BuildHeaders(c.info.RequestID, c.info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events."+c.channel, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}

// InfoFromRequest builds ConnInfo from the upgrade request.
func InfoFromRequest(r *http.Request, traceID string) ConnInfo {
	return ConnInfo{
		ConnID:      uuid.NewString(),
		DeviceID:    observability.DeviceIDFromRequest(r),
		IP:          observability.IPFromRequest(r),
		RequestID:   observability.RequestIDFromRequest(r),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
}
