package types

import (
	"time"
)

type User struct {
	Id           string    `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   string    `json:"created_by"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Connection is one live transport session bound to a user and a room.
type Connection struct {
	ConnectionId string    `json:"connection_id"`
	UserId       string    `json:"user_id"`
	RoomId       string    `json:"room_id"`
	Username     string    `json:"username"`
	ConnectedAt  time.Time `json:"connected_at"`
}

type Message struct {
	Id           string    `json:"id"`
	RoomId       string    `json:"room_id"`
	Content      string    `json:"content"`
	Sender       string    `json:"sender"`
	SenderName   string    `json:"sender_name"`
	Timestamp    time.Time `json:"timestamp"`
	ConnectionId string    `json:"connection_id,omitempty"`
}

type ReadReceipt struct {
	UserId    string     `json:"user_id"`
	MessageId string     `json:"message_id"`
	RoomId    string     `json:"room_id"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
