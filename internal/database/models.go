package database

import "time"

type Connection struct {
	ConnectionId string
	UserId       string
	RoomId       string
	Username     string
	ConnectedAt  time.Time
}

type Message struct {
	Id           string
	RoomId       string
	Content      string
	Sender       string
	SenderName   string
	ConnectionId string
	CreatedAt    time.Time
}

type ReadReceipt struct {
	UserId    string
	MessageId string
	RoomId    string
	IsRead    bool
	ReadAt    *time.Time
}

type Room struct {
	Id          string
	Name        string
	Description string
	IsPrivate   bool
	CreatedBy   string
	Members     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type User struct {
	Id           string
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type PutConnectionParams struct {
	ConnectionId string
	UserId       string
	RoomId       string
	Username     string
}

type ListMessagesParams struct {
	RoomId string
	// Before and BeforeId form an exclusive keyset cursor; both zero values
	// mean "start from the newest message".
	Before   time.Time
	BeforeId string
	Limit    int
}

type CreateRoomParams struct {
	Id          string
	Name        string
	Description string
	IsPrivate   bool
	CreatedBy   string
	Members     []string
}

type ListRoomsParams struct {
	CreatedBy string
	Limit     int
	Offset    int
}

type CreateAccountParams struct {
	Id           string
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       string
	Username     string
	PasswordHash string
}
