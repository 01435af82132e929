package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnordin/chatrelay/internal/types"
)

func TestMessageReceived(t *testing.T) {
	msg := &types.Message{
		Id:        "m1",
		RoomId:    "r1",
		Content:   "hello",
		Sender:    "u1",
		Timestamp: Now(),
	}

	frame := MessageReceived(msg)
	assert.Equal(t, ActionMessageReceived, frame.Action)
	assert.Equal(t, msg.Timestamp, frame.Timestamp)
	assert.Same(t, msg, frame.Message)
	assert.Nil(t, frame.Response, "push events carry no response envelope")
}

func TestResponseFrames(t *testing.T) {
	tcases := []struct {
		name       string
		frame      *ServerMessage
		wantStatus int
		wantError  string
	}{
		{
			name:       "ok",
			frame:      NoErrOK(1, map[string]any{"message_id": "m1"}),
			wantStatus: 200,
		},
		{
			name:       "bad request",
			frame:      ErrBadRequest(2, "missing room"),
			wantStatus: 400,
			wantError:  "missing room",
		},
		{
			name:       "internal error",
			frame:      ErrInternalError(3),
			wantStatus: 500,
			wantError:  "internal server error",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.frame.Response)
			assert.Equal(t, tc.wantStatus, tc.frame.Response.StatusCode)
			assert.Equal(t, tc.wantError, tc.frame.Response.Error)
			assert.False(t, tc.frame.Timestamp.IsZero(), "expected a timestamp")
		})
	}
}

func TestClientMessageDecoding(t *testing.T) {
	raw := []byte(`{"id":4,"action":"sendMessage","room_id":"r1","content":"hi"}`)

	var msg ClientMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, 4, msg.Id)
	assert.Equal(t, ActionSendMessage, msg.Action)
	assert.Equal(t, "r1", msg.RoomId)
	assert.Equal(t, "hi", msg.Content)
}

func TestNow(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location(), "expected UTC")
	assert.Equal(t, now, now.Round(time.Millisecond), "expected millisecond precision")
}
