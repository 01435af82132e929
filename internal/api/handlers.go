package api

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"

	"github.com/pnordin/chatrelay/internal/database"
	"github.com/pnordin/chatrelay/internal/server"
	"github.com/pnordin/chatrelay/internal/types"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type CreateRoomRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsPrivate   bool     `json:"is_private"`
	Members     []string `json:"members"`
}

type ChatHistoryResponse struct {
	Messages  []types.Message `json:"messages"`
	NextToken string          `json:"next_token,omitempty"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func (s *ChatRelayApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// pageToken is the continuation cursor for the history query: the sort key
// of the last row returned.
type pageToken struct {
	CreatedAt time.Time `json:"created_at"`
	Id        string    `json:"id"`
}

func encodePageToken(t pageToken) string {
	raw, _ := json.Marshal(t)
	return base64.URLEncoding.EncodeToString(raw)
}

func decodePageToken(s string) (pageToken, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return pageToken{}, err
	}

	var t pageToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return pageToken{}, err
	}

	return t, nil
}

// getChatHistory returns a room's messages newest first, one page at a
// time. The next_token in a response resumes the scan exactly after the
// last returned row.
func (s *ChatRelayApp) getChatHistory(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")
	if roomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := defaultPageSize
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		limit = min(parsed, maxPageSize)
	}

	params := database.ListMessagesParams{
		RoomId: roomId,
		// one extra row tells us whether another page exists
		Limit: limit + 1,
	}

	if tokenStr := r.URL.Query().Get("nextToken"); tokenStr != "" {
		token, err := decodePageToken(tokenStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		params.Before = token.CreatedAt
		params.BeforeId = token.Id
	}

	dbMessages, err := s.db.ListMessages(r.Context(), params)
	if err != nil {
		s.log.Println("list messages:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var nextToken string
	if len(dbMessages) > limit {
		dbMessages = dbMessages[:limit]
		last := dbMessages[len(dbMessages)-1]
		nextToken = encodePageToken(pageToken{CreatedAt: last.CreatedAt, Id: last.Id})
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, msg := range dbMessages {
		messages = append(messages, types.Message{
			Id:         msg.Id,
			RoomId:     msg.RoomId,
			Content:    msg.Content,
			Sender:     msg.Sender,
			SenderName: msg.SenderName,
			Timestamp:  msg.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, ChatHistoryResponse{
		Messages:  messages,
		NextToken: nextToken,
	})
}

func (s *ChatRelayApp) getReadReceipts(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId := r.PathValue("roomId")
	if roomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// point lookup for a single message's receipt
	if messageId := r.URL.Query().Get("messageId"); messageId != "" {
		receipt, err := s.db.GetReadReceipt(r.Context(), userId, messageId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				s.log.Println("get read receipt:", err)
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, types.ReadReceipt{
			UserId:    receipt.UserId,
			MessageId: receipt.MessageId,
			RoomId:    receipt.RoomId,
			IsRead:    receipt.IsRead,
			ReadAt:    receipt.ReadAt,
		})
		return
	}

	dbReceipts, err := s.db.ListRoomReadReceipts(r.Context(), userId, roomId)
	if err != nil {
		s.log.Println("list read receipts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	receipts := make([]types.ReadReceipt, 0, len(dbReceipts))
	for _, receipt := range dbReceipts {
		receipts = append(receipts, types.ReadReceipt{
			UserId:    receipt.UserId,
			MessageId: receipt.MessageId,
			RoomId:    receipt.RoomId,
			IsRead:    receipt.IsRead,
			ReadAt:    receipt.ReadAt,
		})
	}

	s.writeJson(w, http.StatusOK, receipts)
}

func (s *ChatRelayApp) createRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// creator is always a member, exactly once
	members := []string{userId}
	for _, member := range req.Members {
		if member != "" && !slices.Contains(members, member) {
			members = append(members, member)
		}
	}

	room, err := s.db.CreateRoom(r.Context(), database.CreateRoomParams{
		Id:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		CreatedBy:   userId,
		Members:     members,
	})
	if err != nil {
		s.log.Println("create room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, roomToApi(room))
}

func (s *ChatRelayApp) listRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.ListRoomsParams{Limit: defaultPageSize}
	if r.URL.Query().Get("createdByMe") == "true" {
		params.CreatedBy = userId
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		params.Limit = min(limit, maxPageSize)
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		params.Offset = offset
	}

	dbRooms, err := s.db.ListRooms(r.Context(), params)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, room := range dbRooms {
		rooms = append(rooms, roomToApi(room))
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatRelayApp) getRoom(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")
	if roomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoom(r.Context(), roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, roomToApi(room))
}

func (s *ChatRelayApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId := r.PathValue("roomId")
	if roomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoom(r.Context(), roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if room.CreatedBy != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteRoom(r.Context(), roomId); err != nil {
		s.log.Println("delete room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatRelayApp) getUserProfile(w http.ResponseWriter, r *http.Request) {
	userId := r.PathValue("userId")
	if userId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(r.Context(), userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:        user.Id,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

func (s *ChatRelayApp) updateUserProfile(w http.ResponseWriter, r *http.Request) {
	authedUserId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId := r.PathValue("userId")
	if userId != authedUserId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.UpdateAccount(r.Context(), database.UpdateAccountParams{
		UserId:       userId,
		Username:     req.Username,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.log.Println("update account:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
	})
}

func (s *ChatRelayApp) createUploadURL(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.signer == nil {
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.FileName == "" || req.ContentType == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	presigned, err := s.signer.SignPut(userId, req.FileName, req.ContentType)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, presigned)
}

// serveWs registers the connection and hands the socket to the relay core.
// Identity comes from query params with anonymous defaults; the registry row
// written here is the single authority for who is behind the connection.
func (s *ChatRelayApp) serveWs(w http.ResponseWriter, r *http.Request) {
	connectionId, err := shortid.Generate()
	if err != nil {
		s.log.Println("generate connection id:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	query := r.URL.Query()
	_, err = s.handlers.Lifecycle.Connect(r.Context(), server.ConnectParams{
		ConnectionId: connectionId,
		UserId:       query.Get("userId"),
		RoomId:       query.Get("roomId"),
		Username:     query.Get("username"),
	})
	if err != nil {
		s.log.Println("connect:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		if err := s.handlers.Lifecycle.Disconnect(r.Context(), connectionId); err != nil {
			s.log.Println("disconnect after failed upgrade:", err)
		}
		return
	}

	client := server.NewClient(connectionId, conn, s.gateway, s.handlers, s.log)

	s.gateway.RegisterClient(client)
	go client.Write()
	go client.Read()
}

func roomToApi(room database.Room) types.Room {
	return types.Room{
		Id:          room.Id,
		Name:        room.Name,
		Description: room.Description,
		IsPrivate:   room.IsPrivate,
		CreatedBy:   room.CreatedBy,
		Members:     room.Members,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}
