package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnordin/chatrelay/internal/testutil"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	return NewGateway(testutil.TestLogger(t), testStats(t))
}

func TestGatewayPush(t *testing.T) {
	gw := newTestGateway(t)
	c := NewClient("c1", nil, gw, Handlers{}, testutil.TestLogger(t))
	gw.RegisterClient(c)
	defer gw.DeregisterClient(c)

	require.NoError(t, gw.Push(context.Background(), "c1", []byte("hello")))

	select {
	case payload := <-c.send:
		assert.Equal(t, []byte("hello"), payload, "expected payload queued for write pump")
	default:
		t.Fatal("expected payload in client send buffer")
	}
}

func TestGatewayPush_UnknownConnection(t *testing.T) {
	gw := newTestGateway(t)

	err := gw.Push(context.Background(), "nope", []byte("hello"))
	assert.ErrorIs(t, err, ErrConnectionGone, "expected gone for unregistered connection")
}

func TestGatewayPush_StoppedClient(t *testing.T) {
	gw := newTestGateway(t)
	c := NewClient("c1", nil, gw, Handlers{}, testutil.TestLogger(t))
	gw.RegisterClient(c)
	defer gw.DeregisterClient(c)

	c.stopClient()

	err := gw.Push(context.Background(), "c1", []byte("hello"))
	assert.ErrorIs(t, err, ErrConnectionGone, "expected gone for stopped session")
}

func TestGatewayPush_FullBufferTimesOut(t *testing.T) {
	gw := newTestGateway(t)
	c := NewClient("c1", nil, gw, Handlers{}, testutil.TestLogger(t))
	gw.RegisterClient(c)
	defer gw.DeregisterClient(c)

	for i := 0; i < cap(c.send); i++ {
		c.send <- []byte("fill")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := gw.Push(ctx, "c1", []byte("hello"))
	assert.ErrorIs(t, err, context.DeadlineExceeded, "expected timeout on full buffer")
}

func TestGatewayDeregisterIdempotent(t *testing.T) {
	gw := newTestGateway(t)
	c := NewClient("c1", nil, gw, Handlers{}, testutil.TestLogger(t))
	gw.RegisterClient(c)

	gw.DeregisterClient(c)
	gw.DeregisterClient(c)

	err := gw.Push(context.Background(), "c1", []byte("hello"))
	assert.ErrorIs(t, err, ErrConnectionGone, "expected gone after deregistration")
}

func TestGatewayShutdown(t *testing.T) {
	gw := newTestGateway(t)
	c := NewClient("c1", nil, gw, Handlers{}, testutil.TestLogger(t))
	gw.RegisterClient(c)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- gw.Shutdown(ctx)
	}()

	// stop signal reaches the session, then its cleanup deregisters it
	select {
	case <-c.stop:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to stop the client")
	}
	gw.DeregisterClient(c)

	require.NoError(t, <-done, "expected shutdown to complete")
}

func TestGatewayShutdown_Timeout(t *testing.T) {
	gw := newTestGateway(t)
	c := NewClient("c1", nil, gw, Handlers{}, testutil.TestLogger(t))
	gw.RegisterClient(c)
	defer gw.DeregisterClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := gw.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "expected timeout while a session lingers")
}
