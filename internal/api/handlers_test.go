package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pnordin/chatrelay/internal/database"
	"github.com/pnordin/chatrelay/internal/types"
	"github.com/pnordin/chatrelay/internal/upload"
)

func TestPageTokenRoundTrip(t *testing.T) {
	token := pageToken{
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Id:        "m1",
	}

	decoded, err := decodePageToken(encodePageToken(token))
	require.NoError(t, err)
	assert.Equal(t, token, decoded)
}

func TestDecodePageToken_Invalid(t *testing.T) {
	_, err := decodePageToken("not base64!!")
	assert.Error(t, err, "expected error for malformed token")
}

func historyMessages(n int) []database.Message {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := make([]database.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, database.Message{
			Id:        "m" + strconv.Itoa(i),
			RoomId:    "r1",
			Content:   "message " + strconv.Itoa(i),
			Sender:    "u1",
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return msgs
}

func TestGetChatHistory(t *testing.T) {
	// three rows for a page of two: the extra row signals another page
	repo := &database.MockChatRepository{}
	repo.On("ListMessages", mock.Anything, database.ListMessagesParams{
		RoomId: "r1",
		Limit:  3,
	}).Return(historyMessages(3), nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms/r1/messages?limit=2", nil), "u1")
	req.SetPathValue("roomId", "r1")
	rec := httptest.NewRecorder()
	app.getChatHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2, "expected the extra row trimmed")
	assert.Equal(t, "m0", resp.Messages[0].Id, "expected newest first")
	require.NotEmpty(t, resp.NextToken, "expected a continuation token")

	token, err := decodePageToken(resp.NextToken)
	require.NoError(t, err)
	assert.Equal(t, "m1", token.Id, "expected cursor at the last returned row")
}

func TestGetChatHistory_LastPage(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("ListMessages", mock.Anything, mock.Anything).Return(historyMessages(2), nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms/r1/messages?limit=5", nil), "u1")
	req.SetPathValue("roomId", "r1")
	rec := httptest.NewRecorder()
	app.getChatHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, 2)
	assert.Empty(t, resp.NextToken, "expected no token on the last page")
}

func TestGetChatHistory_ResumesFromToken(t *testing.T) {
	cursor := pageToken{
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Id:        "m5",
	}

	repo := &database.MockChatRepository{}
	repo.On("ListMessages", mock.Anything, database.ListMessagesParams{
		RoomId:   "r1",
		Before:   cursor.CreatedAt,
		BeforeId: cursor.Id,
		Limit:    defaultPageSize + 1,
	}).Return([]database.Message{}, nil)

	app := newTestApp(t, repo)

	target := "/api/rooms/r1/messages?nextToken=" + url.QueryEscape(encodePageToken(cursor))
	req := authedRequest(httptest.NewRequest(http.MethodGet, target, nil), "u1")
	req.SetPathValue("roomId", "r1")
	rec := httptest.NewRecorder()
	app.getChatHistory(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestGetChatHistory_BadRequest(t *testing.T) {
	tcases := []struct {
		name  string
		query string
	}{
		{name: "malformed token", query: "?nextToken=%21%21"},
		{name: "non-numeric limit", query: "?limit=abc"},
		{name: "zero limit", query: "?limit=0"},
		{name: "negative limit", query: "?limit=-5"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &database.MockChatRepository{}
			app := newTestApp(t, repo)

			req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms/r1/messages"+tc.query, nil), "u1")
			req.SetPathValue("roomId", "r1")
			rec := httptest.NewRecorder()
			app.getChatHistory(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			repo.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
		})
	}
}

func TestGetReadReceipts(t *testing.T) {
	readAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	repo := &database.MockChatRepository{}
	repo.On("ListRoomReadReceipts", mock.Anything, "u1", "r1").Return([]database.ReadReceipt{
		{UserId: "u1", MessageId: "m1", RoomId: "r1", IsRead: true, ReadAt: &readAt},
		{UserId: "u1", MessageId: "m2", RoomId: "r1", IsRead: false},
	}, nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms/r1/receipts", nil), "u1")
	req.SetPathValue("roomId", "r1")
	rec := httptest.NewRecorder()
	app.getReadReceipts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var receipts []types.ReadReceipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipts))
	require.Len(t, receipts, 2)
	assert.True(t, receipts[0].IsRead)
	require.NotNil(t, receipts[0].ReadAt)
	assert.False(t, receipts[1].IsRead)
	assert.Nil(t, receipts[1].ReadAt)
}

func TestGetReadReceipts_SingleMessage(t *testing.T) {
	readAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	repo := &database.MockChatRepository{}
	repo.On("GetReadReceipt", mock.Anything, "u1", "m1").Return(database.ReadReceipt{
		UserId: "u1", MessageId: "m1", RoomId: "r1", IsRead: true, ReadAt: &readAt,
	}, nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms/r1/receipts?messageId=m1", nil), "u1")
	req.SetPathValue("roomId", "r1")
	rec := httptest.NewRecorder()
	app.getReadReceipts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var receipt types.ReadReceipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "m1", receipt.MessageId)
	assert.True(t, receipt.IsRead)
	repo.AssertNotCalled(t, "ListRoomReadReceipts", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetReadReceipts_SingleMessageNotFound(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetReadReceipt", mock.Anything, "u1", "missing").Return(database.ReadReceipt{}, sql.ErrNoRows)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms/r1/receipts?messageId=missing", nil), "u1")
	req.SetPathValue("roomId", "r1")
	rec := httptest.NewRecorder()
	app.getReadReceipts(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRoom(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("CreateRoom", mock.Anything, mock.MatchedBy(func(p database.CreateRoomParams) bool {
		// creator listed first, duplicates collapsed
		return p.Id != "" && p.Name == "general" && p.CreatedBy == "u1" &&
			assert.ObjectsAreEqual([]string{"u1", "u2", "u3"}, p.Members)
	})).Return(database.Room{
		Id:        "room-1",
		Name:      "general",
		CreatedBy: "u1",
		Members:   []string{"u1", "u2", "u3"},
	}, nil)

	app := newTestApp(t, repo)

	body := `{"name":"general","members":["u2","u1","u3","u2",""]}`
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.createRoom(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestCreateRoom_MissingName(t *testing.T) {
	repo := &database.MockChatRepository{}
	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{}`)), "u1")
	rec := httptest.NewRecorder()
	app.createRoom(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything)
}

func TestListRooms(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("ListRooms", mock.Anything, database.ListRoomsParams{
		CreatedBy: "u1",
		Limit:     10,
		Offset:    5,
	}).Return([]database.Room{
		{Id: "room-1", Name: "general", CreatedBy: "u1"},
	}, nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms?createdByMe=true&limit=10&offset=5", nil), "u1")
	rec := httptest.NewRecorder()
	app.listRooms(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []types.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "room-1", rooms[0].Id)
}

func TestGetRoom_NotFound(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", mock.Anything, "missing").Return(database.Room{}, sql.ErrNoRows)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/rooms/missing", nil), "u1")
	req.SetPathValue("roomId", "missing")
	rec := httptest.NewRecorder()
	app.getRoom(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRoom(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", mock.Anything, "room-1").Return(database.Room{
		Id:        "room-1",
		CreatedBy: "u1",
	}, nil)
	repo.On("DeleteRoom", mock.Anything, "room-1").Return(nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodDelete, "/api/rooms/room-1", nil), "u1")
	req.SetPathValue("roomId", "room-1")
	rec := httptest.NewRecorder()
	app.deleteRoom(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
}

func TestDeleteRoom_NotCreator(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", mock.Anything, "room-1").Return(database.Room{
		Id:        "room-1",
		CreatedBy: "someone-else",
	}, nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodDelete, "/api/rooms/room-1", nil), "u1")
	req.SetPathValue("roomId", "room-1")
	rec := httptest.NewRecorder()
	app.deleteRoom(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "DeleteRoom", mock.Anything, mock.Anything)
}

func TestGetUserProfile(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetAccountById", mock.Anything, "u2").Return(database.User{
		Id:           "u2",
		Username:     "otheruser",
		EmailAddress: "other@example.com",
		PasswordHash: "secret-hash",
	}, nil)

	app := newTestApp(t, repo)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/users/u2", nil), "u1")
	req.SetPathValue("userId", "u2")
	rec := httptest.NewRecorder()
	app.getUserProfile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"otheruser"`)
	assert.NotContains(t, rec.Body.String(), "other@example.com", "expected email withheld from public profile")
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestUpdateUserProfile(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("UpdateAccount", mock.Anything, mock.MatchedBy(func(p database.UpdateAccountParams) bool {
		return p.UserId == "u1" && p.Username == "newname" && p.PasswordHash != "" && p.PasswordHash != "newpass"
	})).Return(database.User{
		Id:       "u1",
		Username: "newname",
	}, nil)

	app := newTestApp(t, repo)

	body := `{"username":"newname","password":"newpass"}`
	req := authedRequest(httptest.NewRequest(http.MethodPut, "/api/users/u1", strings.NewReader(body)), "u1")
	req.SetPathValue("userId", "u1")
	rec := httptest.NewRecorder()
	app.updateUserProfile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdateUserProfile_OtherUser(t *testing.T) {
	repo := &database.MockChatRepository{}
	app := newTestApp(t, repo)

	body := `{"username":"newname","password":"newpass"}`
	req := authedRequest(httptest.NewRequest(http.MethodPut, "/api/users/u2", strings.NewReader(body)), "u1")
	req.SetPathValue("userId", "u2")
	rec := httptest.NewRecorder()
	app.updateUserProfile(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "UpdateAccount", mock.Anything, mock.Anything)
}

func TestCreateUploadURL(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})

	body := `{"file_name":"avatar.png","content_type":"image/png"}`
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.createUploadURL(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var presigned upload.PresignedUpload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presigned))
	assert.True(t, strings.HasPrefix(presigned.Key, "u1/"), "expected key scoped to the user")
	assert.Contains(t, presigned.URL, "signature=")
	assert.True(t, presigned.ExpiresAt.After(time.Now()), "expected a future expiry")
}

func TestCreateUploadURL_BadRequest(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})

	body := `{"file_name":"avatar.png"}`
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.createUploadURL(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUploadURL_NoSigner(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})
	app.signer = nil

	body := `{"file_name":"avatar.png","content_type":"image/png"}`
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.createUploadURL(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "expected uploads disabled without a signer")
}
