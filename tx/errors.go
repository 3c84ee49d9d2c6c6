package tx

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("tx: required parameter is nil")

	// ErrInsufficientFunds indicates the inputs cannot cover payouts and fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrDustOutput indicates a non-zero payout below the dust limit.
	ErrDustOutput = errors.New("tx: payout below dust limit")

	// ErrNoOutputs indicates every payout of the distribution is zero.
	ErrNoOutputs = errors.New("tx: no payable outputs")

	// ErrAmountTooLarge indicates a payout does not fit in satoshis.
	ErrAmountTooLarge = errors.New("tx: amount exceeds satoshi range")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("tx: signing failed")

	// ErrScriptBuild indicates script construction failed.
	ErrScriptBuild = errors.New("tx: script build failed")

	// ErrInvalidOPReturn indicates the OP_RETURN record is malformed.
	ErrInvalidOPReturn = errors.New("tx: invalid OP_RETURN format")

	// ErrNotPayoutTx indicates the record does not carry the payout flag.
	ErrNotPayoutTx = errors.New("tx: not a payout transaction")
)
