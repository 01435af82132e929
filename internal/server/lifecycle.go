package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/pnordin/chatrelay/internal/database"
	"github.com/pnordin/chatrelay/internal/types"
)

// Defaults applied when a client connects without identifying itself.
const (
	DefaultUserId   = "anonymous"
	DefaultRoomId   = "default"
	DefaultUsername = "Anonymous User"
)

type ConnectParams struct {
	ConnectionId string
	UserId       string
	RoomId       string
	Username     string
}

// ConnectionHandler maintains the connection registry on connect and
// disconnect events. It is the sole writer of connection rows; the
// dispatcher may delete rows it finds stale during fan-out.
type ConnectionHandler struct {
	log *log.Logger
	db  database.ChatRepository
}

func NewConnectionHandler(logger *log.Logger, db database.ChatRepository) *ConnectionHandler {
	return &ConnectionHandler{
		log: logger,
		db:  db,
	}
}

// Connect records a new live connection. The write has overwrite semantics,
// so a reconnect reusing a connection id is not a conflict.
func (h *ConnectionHandler) Connect(ctx context.Context, params ConnectParams) (types.Connection, error) {
	if params.ConnectionId == "" {
		return types.Connection{}, fmt.Errorf("%w: missing connection id", ErrInvalidRequest)
	}

	if params.UserId == "" {
		params.UserId = DefaultUserId
	}
	if params.RoomId == "" {
		params.RoomId = DefaultRoomId
	}
	if params.Username == "" {
		params.Username = DefaultUsername
	}

	conn, err := h.db.PutConnection(ctx, database.PutConnectionParams{
		ConnectionId: params.ConnectionId,
		UserId:       params.UserId,
		RoomId:       params.RoomId,
		Username:     params.Username,
	})
	if err != nil {
		h.log.Println("put connection:", err)
		return types.Connection{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	h.log.Printf("connection %q established for user %q in room %q", conn.ConnectionId, conn.UserId, conn.RoomId)

	return types.Connection{
		ConnectionId: conn.ConnectionId,
		UserId:       conn.UserId,
		RoomId:       conn.RoomId,
		Username:     conn.Username,
		ConnectedAt:  conn.ConnectedAt,
	}, nil
}

// Disconnect removes a connection from the registry. The row is read first
// so the departure can be logged, but absence is not an error: a duplicate
// disconnect or a row already pruned during fan-out is benign.
func (h *ConnectionHandler) Disconnect(ctx context.Context, connectionId string) error {
	conn, err := h.db.GetConnection(ctx, connectionId)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		h.log.Println("get connection:", err)
	}

	if err := h.db.DeleteConnection(ctx, connectionId); err != nil {
		h.log.Println("delete connection:", err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if conn.ConnectionId != "" {
		h.log.Printf("user %q disconnected from room %q", conn.UserId, conn.RoomId)
	}

	return nil
}
