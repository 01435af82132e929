package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pnordin/chatrelay/internal/database"
	"github.com/pnordin/chatrelay/internal/stats"
	"github.com/pnordin/chatrelay/internal/types"
)

const defaultPushTimeout = 10 * time.Second

// ConnectionPusher delivers a payload to one live connection. It must return
// ErrConnectionGone (possibly wrapped) when the target is no longer
// reachable, so the caller can prune the registry row.
type ConnectionPusher interface {
	Push(ctx context.Context, connectionId string, payload []byte) error
}

// Dispatcher validates an inbound message, persists it, and fans it out to
// every connection currently present in the room. It is the sole writer of
// message rows and the sole creator of read-receipt rows.
type Dispatcher struct {
	log         *log.Logger
	db          database.ChatRepository
	pusher      ConnectionPusher
	stats       stats.StatsProvider
	pushTimeout time.Duration
}

func NewDispatcher(logger *log.Logger, db database.ChatRepository, pusher ConnectionPusher, statsProvider stats.StatsProvider) *Dispatcher {
	return &Dispatcher{
		log:         logger,
		db:          db,
		pusher:      pusher,
		stats:       statsProvider,
		pushTimeout: defaultPushTimeout,
	}
}

// Send persists a message from the given connection and attempts delivery to
// every connection in the room. The message is durable once Send returns
// without error; delivery is attempted but not guaranteed.
func (d *Dispatcher) Send(ctx context.Context, connectionId, roomId, content string) (types.Message, error) {
	if roomId == "" || content == "" {
		return types.Message{}, fmt.Errorf("%w: roomId and content are required", ErrInvalidRequest)
	}

	sender, err := d.db.GetConnection(ctx, connectionId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, fmt.Errorf("%w: %s", ErrUnknownConnection, connectionId)
		}
		return types.Message{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	msg := types.Message{
		Id:           uuid.NewString(),
		RoomId:       roomId,
		Content:      content,
		Sender:       sender.UserId,
		SenderName:   sender.Username,
		Timestamp:    Now(),
		ConnectionId: connectionId,
	}

	// Delivery must never precede durability.
	if err := d.db.CreateMessage(ctx, database.Message{
		Id:           msg.Id,
		RoomId:       msg.RoomId,
		Content:      msg.Content,
		Sender:       msg.Sender,
		SenderName:   msg.SenderName,
		ConnectionId: msg.ConnectionId,
		CreatedAt:    msg.Timestamp,
	}); err != nil {
		d.log.Println("create message:", err)
		return types.Message{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	d.stats.Incr(stats.MessagesDispatched)

	// Membership is whoever holds an open connection tagged with this room
	// right now, not the sender's room at connect time.
	members, err := d.db.ListRoomConnections(ctx, roomId)
	if err != nil {
		d.log.Println("list room connections:", err)
		return msg, nil
	}

	d.seedReceipts(ctx, msg, members)
	d.fanOut(ctx, msg, members)

	return msg, nil
}

// seedReceipts creates the initial read-receipt row for every room member.
// The sender's own row is born read; everyone else's is born unread. A
// failed seed for one member never blocks the others or the delivery.
func (d *Dispatcher) seedReceipts(ctx context.Context, msg types.Message, members []database.Connection) {
	seeded := make(map[string]struct{}, len(members))
	for _, member := range members {
		if _, ok := seeded[member.UserId]; ok {
			continue
		}
		seeded[member.UserId] = struct{}{}

		receipt := database.ReadReceipt{
			UserId:    member.UserId,
			MessageId: msg.Id,
			RoomId:    msg.RoomId,
		}
		if member.UserId == msg.Sender {
			readAt := msg.Timestamp
			receipt.IsRead = true
			receipt.ReadAt = &readAt
		}

		if err := d.db.UpsertReadReceipt(ctx, receipt); err != nil {
			d.log.Printf("seed receipt for user %q: %v", member.UserId, err)
		}
	}
}

// fanOut pushes the message to all member connections concurrently and waits
// for every push to finish. A "gone" push prunes that connection from the
// registry; any other failure is logged and the connection kept.
func (d *Dispatcher) fanOut(ctx context.Context, msg types.Message, members []database.Connection) {
	payload, err := json.Marshal(MessageReceived(&msg))
	if err != nil {
		d.log.Println("marshal push payload:", err)
		return
	}

	g := new(errgroup.Group)
	for _, member := range members {
		member := member
		g.Go(func() error {
			pushCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
			defer cancel()

			err := d.pusher.Push(pushCtx, member.ConnectionId, payload)
			switch {
			case err == nil:
				d.stats.Incr(stats.MessagesPushed)
			case errors.Is(err, ErrConnectionGone):
				d.log.Printf("stale connection %q, pruning", member.ConnectionId)
				if err := d.db.DeleteConnection(ctx, member.ConnectionId); err != nil {
					d.log.Printf("prune connection %q: %v", member.ConnectionId, err)
				} else {
					d.stats.Incr(stats.StaleConnections)
				}
			default:
				d.log.Printf("push to %q: %v", member.ConnectionId, err)
			}
			return nil
		})
	}
	g.Wait()
}
