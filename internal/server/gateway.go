package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/pnordin/chatrelay/internal/stats"
)

// Gateway tracks the live websocket session behind each connection id and
// implements the push-to-connection primitive used by the dispatcher. The
// socket map is transport state only; the durable connection registry lives
// in the database.
type Gateway struct {
	log         *log.Logger
	stats       stats.StatsProvider
	clients     map[string]*Client
	clientsLock sync.RWMutex
	running     sync.WaitGroup
}

func NewGateway(logger *log.Logger, statsProvider stats.StatsProvider) *Gateway {
	return &Gateway{
		log:     logger,
		stats:   statsProvider,
		clients: make(map[string]*Client),
	}
}

func (g *Gateway) RegisterClient(c *Client) {
	g.clientsLock.Lock()
	defer g.clientsLock.Unlock()

	g.clients[c.id] = c
	g.running.Add(1)
	g.stats.Incr(stats.ActiveConnections)
}

func (g *Gateway) DeregisterClient(c *Client) {
	g.clientsLock.Lock()
	defer g.clientsLock.Unlock()

	if _, ok := g.clients[c.id]; !ok {
		return
	}

	delete(g.clients, c.id)
	g.running.Done()
	g.stats.Decr(stats.ActiveConnections)
}

// Push delivers a payload to the live session for connectionId. It returns
// ErrConnectionGone when no such session exists or the session has stopped;
// a full send buffer surfaces as a context timeout, which callers treat as
// transient.
func (g *Gateway) Push(ctx context.Context, connectionId string, payload []byte) error {
	g.clientsLock.RLock()
	c, ok := g.clients[connectionId]
	g.clientsLock.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionGone, connectionId)
	}

	return c.push(ctx, payload)
}

// Shutdown stops every live session and waits for their pumps to exit or
// the context to expire.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.clientsLock.RLock()
	for _, c := range g.clients {
		c.stopClient()
	}
	g.clientsLock.RUnlock()

	done := make(chan struct{})
	go func() {
		g.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
