package server

import (
	"net/http"
	"time"

	"github.com/pnordin/chatrelay/internal/types"
)

// Client frame actions.
const (
	ActionSendMessage = "sendMessage"
	ActionMarkRead    = "markMessageRead"
)

// Server frame action for fan-out pushes.
const ActionMessageReceived = "messageReceived"

// ClientMessage is one inbound frame. Action selects the operation; the
// remaining fields are action-specific.
type ClientMessage struct {
	Id        int    `json:"id,omitempty"`
	Action    string `json:"action"`
	RoomId    string `json:"room_id,omitempty"`
	Content   string `json:"content,omitempty"`
	MessageId string `json:"message_id,omitempty"`
}

// ServerMessage is one outbound frame: either a response to the requesting
// client or a pushed event for the room.
type ServerMessage struct {
	Id        int            `json:"id,omitempty"`
	Action    string         `json:"action,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Response  *Response      `json:"response,omitempty"`
	Message   *types.Message `json:"message,omitempty"`
}

type Response struct {
	StatusCode int            `json:"status_code"`
	Error      string         `json:"error,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

func MessageReceived(msg *types.Message) *ServerMessage {
	return &ServerMessage{
		Action:    ActionMessageReceived,
		Timestamp: msg.Timestamp,
		Message:   msg,
	}
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			StatusCode: http.StatusOK,
			Data:       data,
		},
	}
}

func ErrBadRequest(id int, reason string) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			StatusCode: http.StatusBadRequest,
			Error:      reason,
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Timestamp: Now(),
		Response: &Response{
			StatusCode: http.StatusInternalServerError,
			Error:      "internal server error",
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
