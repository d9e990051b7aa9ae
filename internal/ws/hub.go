package ws

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/observability"
)

// UserGroup names the personal broadcast group of a user.
func UserGroup(userID int) string {
	return fmt.Sprintf("user:%d", userID)
}

// ChatGroup names the broadcast group of a chat.
func ChatGroup(chatID int) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// Hub is the process-wide registry mapping broadcast groups to the live
// connections joined to them. Membership is ephemeral; clients re-announce
// the chats they watch on every reconnect.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
	log     *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		groups:  make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
		log:     log,
	}
}

// Join adds the client to a group. Joining twice is a no-op.
func (h *Hub) Join(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}

	if _, ok := h.members[c]; !ok {
		h.members[c] = make(map[string]struct{})
	}
	h.members[c][group] = struct{}{}
}

// Leave removes the client from a single group.
func (h *Hub) Leave(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, group)
}

// LeaveAll removes the client from every group it has joined. Called exactly
// once, at disconnect.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for group := range h.members[c] {
		h.leaveLocked(c, group)
	}
	delete(h.members, c)
}

func (h *Hub) leaveLocked(c *Client, group string) {
	if conns, ok := h.groups[group]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.groups, group)
		}
	}
	if groups, ok := h.members[c]; ok {
		delete(groups, group)
	}
}

// Groups returns a snapshot of the groups the client has joined.
func (h *Hub) Groups(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	groups := make([]string, 0, len(h.members[c]))
	for group := range h.members[c] {
		groups = append(groups, group)
	}
	return groups
}

// Clients returns a snapshot of the group's current members.
func (h *Hub) Clients(group string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		clients = append(clients, c)
	}
	return clients
}

// Publish pushes a pre-serialized frame to every connection in the group,
// including the originator's own. Delivery is fire-and-forget: a slow or
// dead connection drops the frame instead of stalling its peers.
func (h *Hub) Publish(group string, payload []byte) {
	for _, c := range h.Clients(group) {
		if !c.Enqueue(payload) {
			observability.IncEventDropped()
			h.log.Debugw("dropped frame for slow or closed connection",
				"group", group, "conn_id", c.ID())
		}
	}
}
