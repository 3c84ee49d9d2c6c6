package ledger

import "errors"

var (
	// ErrInsufficientBalance indicates the sender cannot cover a transfer.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrTransferRejected indicates the recipient's Receiver hook refused value.
	ErrTransferRejected = errors.New("ledger: transfer rejected by recipient")

	// ErrBalanceOverflow indicates a credit would exceed 2^256-1.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")

	// ErrTxClosed indicates the transaction was already committed or rolled back.
	ErrTxClosed = errors.New("ledger: transaction closed")

	// ErrTxFailed indicates Commit was called after a failed operation.
	ErrTxFailed = errors.New("ledger: transaction has a failed operation")

	// ErrInvalidAsset indicates an asset identifier could not be parsed.
	ErrInvalidAsset = errors.New("ledger: invalid asset")

	// ErrInvalidLogData indicates a stored log record is malformed.
	ErrInvalidLogData = errors.New("ledger: invalid log data")
)
