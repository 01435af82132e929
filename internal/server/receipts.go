package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pnordin/chatrelay/internal/database"
	"github.com/pnordin/chatrelay/internal/stats"
)

// ReceiptHandler flips read-receipt rows to read in response to explicit
// client acknowledgements. It never creates receipts for other users and
// never notifies other clients.
type ReceiptHandler struct {
	log   *log.Logger
	db    database.ChatRepository
	stats stats.StatsProvider
}

func NewReceiptHandler(logger *log.Logger, db database.ChatRepository, statsProvider stats.StatsProvider) *ReceiptHandler {
	return &ReceiptHandler{
		log:   logger,
		db:    db,
		stats: statsProvider,
	}
}

// MarkRead records that the user behind connectionId has read messageId.
// Idempotent: marking an already-read message succeeds again with a fresh
// read-at timestamp.
func (h *ReceiptHandler) MarkRead(ctx context.Context, connectionId, messageId, roomId string) (time.Time, error) {
	if messageId == "" || roomId == "" {
		return time.Time{}, fmt.Errorf("%w: messageId and roomId are required", ErrInvalidRequest)
	}

	conn, err := h.db.GetConnection(ctx, connectionId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownConnection, connectionId)
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	readAt := Now()
	if err := h.db.UpsertReadReceipt(ctx, database.ReadReceipt{
		UserId:    conn.UserId,
		MessageId: messageId,
		RoomId:    roomId,
		IsRead:    true,
		ReadAt:    &readAt,
	}); err != nil {
		h.log.Println("upsert read receipt:", err)
		return time.Time{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	h.stats.Incr(stats.ReceiptsMarked)

	return readAt, nil
}
