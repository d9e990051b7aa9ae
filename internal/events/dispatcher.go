package events

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/models"
	"github.com/involved-entity/exwonder-realtime/internal/observability"
	"github.com/involved-entity/exwonder-realtime/internal/repositories"
	"github.com/involved-entity/exwonder-realtime/internal/ws"
)

// Dispatcher turns domain mutations into group broadcasts. Events carry only
// entity ids; payloads are re-read from the store at dispatch time so every
// observer sees fresh state. A send racing a concurrent delete can observe
// either side of the race.
type Dispatcher struct {
	hub      *ws.Hub
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	log      *zap.SugaredLogger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(hub *ws.Hub, chats repositories.ChatRepository, messages repositories.MessageRepository, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{hub: hub, chats: chats, messages: messages, log: log}
}

func (d *Dispatcher) publish(group, event string, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		d.log.Errorw("marshal event", "event", event, "err", err)
		return
	}
	d.hub.Publish(group, payload)
	observability.IncEventPublished(event)
}

// MessageSent broadcasts a freshly re-read message to the chat group.
func (d *Dispatcher) MessageSent(ctx context.Context, chatID, messageID int) {
	d.messageEvent(ctx, models.EventOnMessage, chatID, messageID)
}

// MessageEdited broadcasts the edited message to the chat group.
func (d *Dispatcher) MessageEdited(ctx context.Context, chatID, messageID int) {
	d.messageEvent(ctx, models.EventSendEditMessage, chatID, messageID)
}

func (d *Dispatcher) messageEvent(ctx context.Context, event string, chatID, messageID int) {
	msg, err := d.messages.Get(ctx, messageID)
	if err != nil {
		d.log.Warnw("resolve message for dispatch", "event", event, "message_id", messageID, "err", err)
		return
	}
	d.publish(ws.ChatGroup(chatID), event, models.MessageEvent{
		Type:    event,
		Payload: models.NewMessagePayload(msg),
	})
}

// MessageDeleted broadcasts the deleted message id together with the chat's
// new newest non-deleted message, null when none remains.
func (d *Dispatcher) MessageDeleted(ctx context.Context, chatID, messageID int) {
	var lastMessage *models.MessagePayload
	last, err := d.messages.LastInChat(ctx, chatID)
	switch {
	case err == nil:
		payload := models.NewMessagePayload(last)
		lastMessage = &payload
	case errors.Is(err, repositories.ErrMessageNotFound):
		// the chat is empty now; last_message stays null
	default:
		d.log.Warnw("resolve last message for dispatch", "chat_id", chatID, "err", err)
		return
	}

	d.publish(ws.ChatGroup(chatID), models.EventSendDeleteMessage, models.MessageDeletedEvent{
		Type:        models.EventSendDeleteMessage,
		Payload:     messageID,
		LastMessage: lastMessage,
	})
}

// ChatRead broadcasts the read flag to the chat group.
func (d *Dispatcher) ChatRead(chatID int) {
	d.publish(ws.ChatGroup(chatID), models.EventSendReadChat, models.ChatFlagEvent{
		Type: models.EventSendReadChat,
		Chat: chatID,
	})
}

// ChatDeleted broadcasts the delete flag to the chat group, then retires the
// group so later broadcasts cannot reach a deleted chat.
func (d *Dispatcher) ChatDeleted(chatID int) {
	group := ws.ChatGroup(chatID)
	d.publish(group, models.EventSendDeleteChat, models.ChatFlagEvent{
		Type: models.EventSendDeleteChat,
		Chat: chatID,
	})
	for _, c := range d.hub.Clients(group) {
		d.hub.Leave(c, group)
	}
}

// ChatStarted invites the receiver into a fresh or revived chat. The
// receiver may not be joined to the chat group yet, so the event targets the
// personal group and every connection found there is joined to the chat
// group before the push.
func (d *Dispatcher) ChatStarted(ctx context.Context, receiverID, chatID int) {
	chat, err := d.chats.Get(ctx, chatID)
	if err != nil {
		d.log.Warnw("resolve chat for dispatch", "chat_id", chatID, "err", err)
		return
	}

	userGroup := ws.UserGroup(receiverID)
	for _, c := range d.hub.Clients(userGroup) {
		d.hub.Join(c, ws.ChatGroup(chatID))
	}

	d.publish(userGroup, models.EventConnectToChat, models.ChatEvent{
		Type:    models.EventConnectToChat,
		Payload: BuildChatPayload(ctx, d.messages, chat, receiverID),
	})
}

// Notify pushes a notification to the recipient's personal group.
func (d *Dispatcher) Notify(recipientID int, payload models.NotificationPayload) {
	d.publish(ws.UserGroup(recipientID), models.EventNotify, models.NotificationEvent{
		Type:    models.EventNotify,
		Payload: payload,
	})
}

// BuildChatPayload assembles the viewer-relative wire view of a chat,
// resolving the newest non-deleted message fresh from the store.
func BuildChatPayload(ctx context.Context, messages repositories.MessageRepository, chat models.Chat, viewerID int) models.ChatPayload {
	payload := models.ChatPayload{
		ID:        chat.ID,
		Companion: chat.Companion(viewerID),
		IsRead:    chat.IsRead,
	}

	last, err := messages.LastInChat(ctx, chat.ID)
	if err == nil {
		msg := models.NewMessagePayload(last)
		payload.LastMessage = &msg
	}
	return payload
}
