package transport

import "errors"

var (
	ErrNotConfigured    = errors.New("transport: client not configured")
	ErrAlreadyConnected = errors.New("transport: already connected")
	ErrNotConnected     = errors.New("transport: not connected")
	ErrTimeout          = errors.New("transport: timeout")
	ErrClosed           = errors.New("transport: connection closed")
	ErrEmptyBatch       = errors.New("transport: empty batch")
)
