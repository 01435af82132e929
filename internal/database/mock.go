package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockChatRepository) PutConnection(ctx context.Context, params PutConnectionParams) (Connection, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Connection), args.Error(1)
}
func (m *MockChatRepository) GetConnection(ctx context.Context, connectionId string) (Connection, error) {
	args := m.Called(ctx, connectionId)
	return args.Get(0).(Connection), args.Error(1)
}
func (m *MockChatRepository) DeleteConnection(ctx context.Context, connectionId string) error {
	args := m.Called(ctx, connectionId)
	return args.Error(0)
}
func (m *MockChatRepository) ListRoomConnections(ctx context.Context, roomId string) ([]Connection, error) {
	args := m.Called(ctx, roomId)
	if conns, ok := args.Get(0).([]Connection); ok {
		return conns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) CreateMessage(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
func (m *MockChatRepository) ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error) {
	args := m.Called(ctx, params)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) UpsertReadReceipt(ctx context.Context, receipt ReadReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}
func (m *MockChatRepository) GetReadReceipt(ctx context.Context, userId, messageId string) (ReadReceipt, error) {
	args := m.Called(ctx, userId, messageId)
	return args.Get(0).(ReadReceipt), args.Error(1)
}
func (m *MockChatRepository) ListRoomReadReceipts(ctx context.Context, userId, roomId string) ([]ReadReceipt, error) {
	args := m.Called(ctx, userId, roomId)
	if receipts, ok := args.Get(0).([]ReadReceipt); ok {
		return receipts, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) GetRoom(ctx context.Context, roomId string) (Room, error) {
	args := m.Called(ctx, roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) ListRooms(ctx context.Context, params ListRoomsParams) ([]Room, error) {
	args := m.Called(ctx, params)
	if rooms, ok := args.Get(0).([]Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) DeleteRoom(ctx context.Context, roomId string) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(ctx context.Context, userId string) (User, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}
