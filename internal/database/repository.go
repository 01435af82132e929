package database

import "context"

type ChatRepository interface {
	Ping(ctx context.Context) error

	PutConnection(ctx context.Context, params PutConnectionParams) (Connection, error)
	GetConnection(ctx context.Context, connectionId string) (Connection, error)
	DeleteConnection(ctx context.Context, connectionId string) error
	ListRoomConnections(ctx context.Context, roomId string) ([]Connection, error)

	CreateMessage(ctx context.Context, msg Message) error
	ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error)

	UpsertReadReceipt(ctx context.Context, receipt ReadReceipt) error
	GetReadReceipt(ctx context.Context, userId, messageId string) (ReadReceipt, error)
	ListRoomReadReceipts(ctx context.Context, userId, roomId string) ([]ReadReceipt, error)

	CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error)
	GetRoom(ctx context.Context, roomId string) (Room, error)
	ListRooms(ctx context.Context, params ListRoomsParams) ([]Room, error)
	DeleteRoom(ctx context.Context, roomId string) error

	CreateAccount(ctx context.Context, params CreateAccountParams) (User, error)
	UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error)
	GetAccountById(ctx context.Context, userId string) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (User, error)
}
