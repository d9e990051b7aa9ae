package messenger

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/involved-entity/exwonder-realtime/internal/attachments"
	"github.com/involved-entity/exwonder-realtime/internal/events"
	"github.com/involved-entity/exwonder-realtime/internal/models"
	"github.com/involved-entity/exwonder-realtime/internal/repositories"
	"github.com/involved-entity/exwonder-realtime/internal/ws"
)

// Router dispatches inbound messenger frames to chat/message operations.
// Commands arriving before authentication and unknown command types are
// dropped without a response.
type Router struct {
	gate        *ws.Gate
	hub         *ws.Hub
	chats       repositories.ChatRepository
	messages    repositories.MessageRepository
	dispatcher  *events.Dispatcher
	attachments attachments.Store
	log         *zap.SugaredLogger
}

// NewRouter constructs a messenger Router.
func NewRouter(
	gate *ws.Gate,
	hub *ws.Hub,
	chats repositories.ChatRepository,
	messages repositories.MessageRepository,
	dispatcher *events.Dispatcher,
	store attachments.Store,
	log *zap.SugaredLogger,
) *Router {
	return &Router{
		gate:        gate,
		hub:         hub,
		chats:       chats,
		messages:    messages,
		dispatcher:  dispatcher,
		attachments: store,
		log:         log,
	}
}

// HandleFrame decodes and executes one inbound frame. Store failures abort
// the command only; the connection stays authenticated and usable.
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
	case models.CmdConnectToChats:
		r.connectToChats(ctx, c)
	case models.CmdGetChatHistory:
		r.getChatHistory(ctx, c, cmd.Chat)
	case models.CmdStartChat:
		r.startChat(ctx, c, cmd.Receiver)
	case models.CmdSendMessage:
		r.sendMessage(ctx, c, cmd)
	case models.CmdEditMessage:
		r.editMessage(ctx, c, cmd)
	case models.CmdDeleteMessage:
		r.deleteMessage(ctx, c, cmd.ID)
	case models.CmdDeleteChat:
		r.deleteChat(ctx, c, cmd.ID)
	case models.CmdReadChat:
		r.readChat(ctx, c, cmd.ID)
	default:
		// unknown types are ignored
	}
}

// connectToChats joins the connection to every chat group the user belongs
// to and answers with the full chat list.
func (r *Router) connectToChats(ctx context.Context, c *ws.Client) {
	chats, err := r.chats.ListForUser(ctx, c.UserID())
	if err != nil {
		r.log.Warnw("list chats", "user_id", c.UserID(), "err", err)
		return
	}

	payload := make([]models.ChatPayload, 0, len(chats))
	for _, chat := range chats {
		r.hub.Join(c, ws.ChatGroup(chat.ID))
		payload = append(payload, events.BuildChatPayload(ctx, r.messages, chat, c.UserID()))
	}

	c.SendJSON(models.ChatListEvent{Type: models.EventConnectToChats, Payload: payload})
}

// getChatHistory returns the chat's non-deleted messages, newest first.
// Access is by chat id only; the caller does not need to be joined.
func (r *Router) getChatHistory(ctx context.Context, c *ws.Client, chatID int) {
	msgs, err := r.messages.ListForChat(ctx, chatID)
	if err != nil {
		r.log.Warnw("list chat history", "chat_id", chatID, "err", err)
		return
	}

	payload := make([]models.MessagePayload, 0, len(msgs))
	for _, msg := range msgs {
		payload = append(payload, models.NewMessagePayload(msg))
	}

	c.SendJSON(models.ChatHistoryEvent{Type: models.EventGetChatHistory, Chat: chatID, Payload: payload})
}

// startChat creates or revives the chat with the receiver, joins the caller
// to its group, invites the receiver through its personal group, and acks
// the caller with chat_started.
func (r *Router) startChat(ctx context.Context, c *ws.Client, receiverID int) {
	chat, err := r.chats.CreateOrRevive(ctx, c.UserID(), receiverID)
	if err != nil {
		r.log.Warnw("start chat", "user_id", c.UserID(), "receiver", receiverID, "err", err)
		return
	}

	r.hub.Join(c, ws.ChatGroup(chat.ID))
	r.dispatcher.ChatStarted(ctx, receiverID, chat.ID)

	c.SendJSON(models.ChatEvent{
		Type:    models.EventChatStarted,
		Payload: events.BuildChatPayload(ctx, r.messages, chat, c.UserID()),
	})
}

// sendMessage stores a message, flipping the chat unread, and broadcasts it
// to the chat group including the sender's own connection.
func (r *Router) sendMessage(ctx context.Context, c *ws.Client, cmd models.Command) {
	if cmd.Body == nil && cmd.Attachment == nil {
		r.log.Debugw("rejected message without body or attachment", "conn_id", c.ID())
		return
	}

	attachmentKey, err := r.storeAttachment(ctx, cmd.ChatID, cmd.Attachment, cmd.AttachmentName)
	if err != nil {
		r.log.Warnw("store attachment", "chat_id", cmd.ChatID, "err", err)
		return
	}

	msg, err := r.messages.Create(ctx, repositories.CreateMessageParams{
		ChatID:         cmd.ChatID,
		SenderID:       c.UserID(),
		ReceiverID:     cmd.Receiver,
		Body:           cmd.Body,
		Attachment:     attachmentKey,
		AttachmentName: cmd.AttachmentName,
	})
	if err != nil {
		r.log.Warnw("create message", "chat_id", cmd.ChatID, "err", err)
		return
	}

	r.dispatcher.MessageSent(ctx, cmd.ChatID, msg.ID)
}

// editMessage replaces the body and optionally the attachment; last write
// wins for near-simultaneous edits.
func (r *Router) editMessage(ctx context.Context, c *ws.Client, cmd models.Command) {
	if cmd.Body == nil {
		r.log.Debugw("rejected edit without body", "conn_id", c.ID())
		return
	}

	existing, err := r.messages.Get(ctx, cmd.Message)
	if err != nil {
		r.log.Warnw("edit message", "message_id", cmd.Message, "err", err)
		return
	}

	attachmentKey, err := r.storeAttachment(ctx, existing.ChatID, cmd.Attachment, cmd.AttachmentName)
	if err != nil {
		r.log.Warnw("store attachment", "chat_id", existing.ChatID, "err", err)
		return
	}

	msg, err := r.messages.Edit(ctx, cmd.Message, cmd.Body, attachmentKey, cmd.AttachmentName)
	if err != nil {
		r.log.Warnw("edit message", "message_id", cmd.Message, "err", err)
		return
	}

	r.dispatcher.MessageEdited(ctx, msg.ChatID, msg.ID)
}

// deleteMessage soft-deletes the message; the repository recomputes the
// chat's is_read flag in the same transaction.
func (r *Router) deleteMessage(ctx context.Context, c *ws.Client, messageID int) {
	msg, err := r.messages.SoftDelete(ctx, messageID)
	if err != nil {
		r.log.Warnw("delete message", "message_id", messageID, "err", err)
		return
	}

	r.dispatcher.MessageDeleted(ctx, msg.ChatID, msg.ID)
}

// deleteChat soft-deletes the chat and its messages.
func (r *Router) deleteChat(ctx context.Context, c *ws.Client, chatID int) {
	chat, err := r.chats.SoftDelete(ctx, chatID)
	if err != nil {
		r.log.Warnw("delete chat", "chat_id", chatID, "err", err)
		return
	}

	r.dispatcher.ChatDeleted(chat.ID)
}

// readChat marks the chat and its messages read.
func (r *Router) readChat(ctx context.Context, c *ws.Client, chatID int) {
	chat, err := r.chats.MarkRead(ctx, chatID)
	if err != nil {
		r.log.Warnw("read chat", "chat_id", chatID, "err", err)
		return
	}

	r.dispatcher.ChatRead(chat.ID)
}

// storeAttachment decodes a base64 attachment and uploads it, returning the
// stored key. A nil attachment passes through untouched.
func (r *Router) storeAttachment(ctx context.Context, chatID int, attachment *string, name *string) (*string, error) {
	if attachment == nil {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(*attachment)
	if err != nil {
		return nil, err
	}

	fileName := "attachment"
	if name != nil && *name != "" {
		fileName = *name
	}

	key, err := r.attachments.Save(ctx, chatID, fileName, data)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
