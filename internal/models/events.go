package models

// Inbound command types accepted on the websocket channels.
const (
	CmdAuthenticate      = "authenticate"
	CmdConnectToChats    = "connect_to_chats"
	CmdGetChatHistory    = "get_chat_history"
	CmdStartChat         = "start_chat"
	CmdSendMessage       = "send_message"
	CmdEditMessage       = "edit_message"
	CmdDeleteMessage     = "delete_message"
	CmdDeleteChat        = "delete_chat"
	CmdReadChat          = "read_chat"
	CmdGetUnreadedNotifs = "get_unreaded_notifications"
	CmdMarkRead          = "mark_read"
	CmdMarkAllRead       = "mark_all_read"
)

// Server-pushed event types.
const (
	EventConnectToChats    = "connect_to_chats"
	EventGetChatHistory    = "get_chat_history"
	EventChatStarted       = "chat_started"
	EventConnectToChat     = "connect_to_chat"
	EventOnMessage         = "on_message"
	EventSendEditMessage   = "send_edit_message"
	EventSendDeleteMessage = "send_delete_message"
	EventSendDeleteChat    = "send_delete_chat"
	EventSendReadChat      = "send_read_chat"
	EventNotify            = "notify"
)

// Command is the single inbound frame shape; fields are populated depending
// on Type. Unknown types are ignored by the routers.
type Command struct {
	Type           string  `json:"type"`
	Token          string  `json:"token,omitempty"`
	UserID         int     `json:"user_id,omitempty"`
	Chat           int     `json:"chat,omitempty"`
	ChatID         int     `json:"chat_id,omitempty"`
	Receiver       int     `json:"receiver,omitempty"`
	Message        int     `json:"message,omitempty"`
	ID             int     `json:"id,omitempty"`
	Body           *string `json:"body,omitempty"`
	Attachment     *string `json:"attachment,omitempty"`
	AttachmentName *string `json:"attachment_name,omitempty"`
}

// AuthAck acknowledges an authenticate command.
type AuthAck struct {
	Authenticated bool `json:"authenticated"`
}

// ChatPayload is the viewer-relative wire view of a chat.
type ChatPayload struct {
	ID          int             `json:"id"`
	Companion   int             `json:"companion"`
	IsRead      bool            `json:"is_read"`
	LastMessage *MessagePayload `json:"last_message"`
}

// MessagePayload is the wire view of a message.
type MessagePayload struct {
	ID             int     `json:"id"`
	ChatID         int     `json:"chat_id"`
	SenderID       int     `json:"sender_id"`
	ReceiverID     int     `json:"receiver_id"`
	Body           *string `json:"body"`
	Attachment     *string `json:"attachment"`
	AttachmentName *string `json:"attachment_name,omitempty"`
	IsEdit         bool    `json:"is_edit"`
	IsRead         bool    `json:"is_read"`
	CreatedAt      string  `json:"time_added"`
	UpdatedAt      string  `json:"time_updated"`
}

// NotificationPayload is the wire view of a notification.
type NotificationPayload struct {
	ID          int    `json:"id"`
	RecipientID int    `json:"recipient_id"`
	PostID      int    `json:"post_id"`
	IsRead      bool   `json:"is_read"`
	CreatedAt   string `json:"time_added"`
}

// NewMessagePayload converts a stored message to its wire view.
func NewMessagePayload(m Message) MessagePayload {
	return MessagePayload{
		ID:             m.ID,
		ChatID:         m.ChatID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Body:           m.Body,
		Attachment:     m.Attachment,
		AttachmentName: m.AttachmentName,
		IsEdit:         m.IsEdit,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      m.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// NewNotificationPayload converts a stored notification to its wire view.
func NewNotificationPayload(n Notification) NotificationPayload {
	return NotificationPayload{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		PostID:      n.PostID,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ChatListEvent answers connect_to_chats.
type ChatListEvent struct {
	Type    string        `json:"type"`
	Payload []ChatPayload `json:"payload"`
}

// ChatHistoryEvent answers get_chat_history.
type ChatHistoryEvent struct {
	Type    string           `json:"type"`
	Chat    int              `json:"chat"`
	Payload []MessagePayload `json:"payload"`
}

// ChatEvent carries a single chat payload (chat_started, connect_to_chat).
type ChatEvent struct {
	Type    string      `json:"type"`
	Payload ChatPayload `json:"payload"`
}

// MessageEvent carries a single message payload (on_message, send_edit_message).
type MessageEvent struct {
	Type    string         `json:"type"`
	Payload MessagePayload `json:"payload"`
}

// MessageDeletedEvent carries the deleted message id plus the freshly
// recomputed newest non-deleted message of the chat, null when none remains.
type MessageDeletedEvent struct {
	Type        string          `json:"type"`
	Payload     int             `json:"payload"`
	LastMessage *MessagePayload `json:"last_message"`
}

// ChatFlagEvent carries only a chat id (send_delete_chat, send_read_chat).
type ChatFlagEvent struct {
	Type string `json:"type"`
	Chat int    `json:"chat"`
}

// NotificationListEvent answers get_unreaded_notifications.
type NotificationListEvent struct {
	Type    string                `json:"type"`
	Payload []NotificationPayload `json:"payload"`
}

// NotificationEvent is the fan-out push to a follower's personal group.
type NotificationEvent struct {
	Type    string              `json:"type"`
	Payload NotificationPayload `json:"payload"`
}
