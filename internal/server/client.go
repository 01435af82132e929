package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096

	// handlerTimeout bounds the durable-store work behind one inbound frame.
	handlerTimeout = 15 * time.Second
)

// Handlers bundles the event handlers a client session dispatches into.
type Handlers struct {
	Lifecycle  *ConnectionHandler
	Dispatcher *Dispatcher
	Receipts   *ReceiptHandler
}

// Client is one live websocket session. Its read pump decodes inbound
// frames and routes them by action; its write pump owns all writes to the
// socket, including pushed fan-out payloads.
type Client struct {
	id       string
	conn     *websocket.Conn
	gateway  *Gateway
	handlers Handlers
	log      *log.Logger
	send     chan []byte
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(id string, conn *websocket.Conn, gw *Gateway, handlers Handlers, logger *log.Logger) *Client {
	return &Client{
		id:       id,
		conn:     conn,
		gateway:  gw,
		handlers: handlers,
		log:      logger,
		send:     make(chan []byte, 256),
		stop:     make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeFrame(websocket.TextMessage, payload) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrBadRequest(0, "invalid request body"))
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch msg.Action {
	case ActionSendMessage:
		sent, err := c.handlers.Dispatcher.Send(ctx, c.id, msg.RoomId, msg.Content)
		if err != nil {
			c.queueMessage(errResponse(msg.Id, err))
			return
		}

		c.queueMessage(NoErrOK(msg.Id, map[string]any{"message_id": sent.Id}))
	case ActionMarkRead:
		readAt, err := c.handlers.Receipts.MarkRead(ctx, c.id, msg.MessageId, msg.RoomId)
		if err != nil {
			c.queueMessage(errResponse(msg.Id, err))
			return
		}

		c.queueMessage(NoErrOK(msg.Id, map[string]any{"message_id": msg.MessageId, "read_at": readAt}))
	default:
		c.queueMessage(ErrBadRequest(msg.Id, "unknown action"))
	}
}

func errResponse(id int, err error) *ServerMessage {
	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrUnknownConnection) {
		return ErrBadRequest(id, err.Error())
	}

	return ErrInternalError(id)
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.log.Println("failed to serialize message:", err)
		return false
	}

	select {
	case c.send <- payload:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

// push hands a fan-out payload to the write pump. A stopped session reports
// gone; a full buffer blocks until the caller's deadline.
func (c *Client) push(ctx context.Context, payload []byte) error {
	select {
	case <-c.stop:
		return ErrConnectionGone
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.stop:
		return ErrConnectionGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) writeFrame(msgType int, payload []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, payload); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.gateway.DeregisterClient(c)
	c.stopClient()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := c.handlers.Lifecycle.Disconnect(ctx, c.id); err != nil {
		c.log.Printf("disconnect %q: %v", c.id, err)
	}
}
