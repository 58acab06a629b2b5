package websocket

import "errors"

// Connection-related errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write queue full")
	ErrInvalidJSON      = errors.New("invalid JSON data")
)
