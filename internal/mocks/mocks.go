package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/involved-entity/exwonder-realtime/internal/attachments"
	"github.com/involved-entity/exwonder-realtime/internal/models"
	"github.com/involved-entity/exwonder-realtime/internal/repositories"
	"github.com/involved-entity/exwonder-realtime/internal/ws"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrRevive(ctx context.Context, userID int, receiverID int) (models.Chat, error) {
	args := m.Called(ctx, userID, receiverID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) Get(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatRepositoryMock) MarkRead(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) SoftDelete(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, params repositories.CreateMessageParams) (models.Message, error) {
	args := m.Called(ctx, params)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForChat(ctx context.Context, chatID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LastInChat(ctx context.Context, chatID int) (models.Message, error) {
	args := m.Called(ctx, chatID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Edit(ctx context.Context, messageID int, body *string, attachment *string, attachmentName *string) (models.Message, error) {
	args := m.Called(ctx, messageID, body, attachment, attachmentName)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) BulkCreate(ctx context.Context, postID int, recipientIDs []int) ([]models.Notification, error) {
	args := m.Called(ctx, postID, recipientIDs)
	var notifications []models.Notification
	if val := args.Get(0); val != nil {
		notifications = val.([]models.Notification)
	}
	return notifications, args.Error(1)
}

func (m *NotificationRepositoryMock) ListUnread(ctx context.Context, userID int) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var notifications []models.Notification
	if val := args.Get(0); val != nil {
		notifications = val.([]models.Notification)
	}
	return notifications, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, userID int, notificationID int) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type FollowerRepositoryMock struct {
	mock.Mock
}

func (m *FollowerRepositoryMock) ListFollowerIDs(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

type TokenValidatorMock struct {
	mock.Mock
}

func (m *TokenValidatorMock) Validate(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

type AttachmentStoreMock struct {
	mock.Mock
}

func (m *AttachmentStoreMock) Save(ctx context.Context, chatID int, name string, data []byte) (string, error) {
	args := m.Called(ctx, chatID, name, data)
	return args.String(0), args.Error(1)
}

var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ repositories.FollowerRepository = (*FollowerRepositoryMock)(nil)
var _ ws.TokenValidator = (*TokenValidatorMock)(nil)
var _ attachments.Store = (*AttachmentStoreMock)(nil)
