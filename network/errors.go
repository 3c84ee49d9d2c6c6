package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not connect to the node.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrTxNotFound indicates the requested transaction does not exist.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrBroadcastRejected indicates the node rejected the broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrTxKnown indicates the broadcast transaction is already in the
	// node's mempool or chain.
	ErrTxKnown = errors.New("network: transaction already known")

	// ErrInvalidResponse indicates the node returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrNotConfigured indicates no RPC endpoint could be resolved.
	ErrNotConfigured = errors.New("network: rpc not configured")
)
