package arke

import "errors"

var (
	// ErrSlotExhausted is returned when no transport slot is free. It is
	// always retryable.
	ErrSlotExhausted = errors.New("arke: no free slot")

	// ErrInvalidAddress rejects a node address outside the valid range.
	ErrInvalidAddress = errors.New("arke: invalid node address")

	// ErrRestart signals that the node must be torn down and re-initialized
	// from persisted storage. It is never a normal return path.
	ErrRestart = errors.New("arke: restart requested")

	// ErrUnknownClass is returned by Send for a class missing from the class table.
	ErrUnknownClass = errors.New("arke: unknown message class")

	// ErrInvalidLayout rejects identifier layouts that do not fit 11 bits.
	ErrInvalidLayout = errors.New("arke: invalid identifier layout")
)
