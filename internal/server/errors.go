package server

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request or missing required
	// fields. Never retried.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownConnection indicates the connection registry has no row for
	// the requesting connection id. The client must reconnect.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrStorageUnavailable indicates a durable-store call failed. The whole
	// client operation is safe to retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConnectionGone indicates a push target is no longer reachable.
	// Callers prune the registry row and do not retry.
	ErrConnectionGone = errors.New("connection gone")
)
