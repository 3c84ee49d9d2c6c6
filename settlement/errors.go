package settlement

import "errors"

var (
	// ErrAlreadySettled indicates a distribution already has a broadcast
	// settlement transaction.
	ErrAlreadySettled = errors.New("settlement: distribution already settled")

	// ErrNotNative indicates a token distribution was given; only native
	// value settles on chain.
	ErrNotNative = errors.New("settlement: not a native distribution")

	// ErrRecordNotFound indicates no settlement is recorded for a distribution.
	ErrRecordNotFound = errors.New("settlement: record not found")

	// ErrNotBroadcast indicates the recorded transaction was never accepted
	// by a node.
	ErrNotBroadcast = errors.New("settlement: transaction not broadcast")

	// ErrInvalidRecord indicates a stored record cannot be decoded.
	ErrInvalidRecord = errors.New("settlement: invalid record data")
)
