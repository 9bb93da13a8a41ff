package queue

import "errors"

// Sentinel kinds for publish failures. Both mean the outcome was dropped.
var (
	ErrQueueFull = errors.New("outcome queue full")
	ErrClosed    = errors.New("outcome queue closed")
)
