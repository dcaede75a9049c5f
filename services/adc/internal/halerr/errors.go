package halerr

import "errors"

var (
	// Build/config
	ErrUnknownBus     = errors.New("unknown_bus")
	ErrUnknownLine    = errors.New("unknown_line")
	ErrUnknownBackend = errors.New("unknown_backend")
	ErrInvalidEdge    = errors.New("invalid_edge")
	ErrBusUnbound     = errors.New("bus_unbound")

	// Lifecycle
	ErrClosed = errors.New("closed")
)
