package store

import "errors"

var (
	// ErrClosed is returned by operations issued after Close.
	ErrClosed = errors.New("store: closed")

	// ErrCapacityExceeded is returned by Set when an entry exceeds a
	// configured per-entry or store-wide byte ceiling.
	ErrCapacityExceeded = errors.New("store: capacity exceeded")

	// ErrSerialization is returned when a persisted entry cannot be
	// encoded or decoded.
	ErrSerialization = errors.New("store: serialization failed")

	// ErrUnreachable is returned when a remote backend cannot be
	// contacted.
	ErrUnreachable = errors.New("store: backend unreachable")
)
