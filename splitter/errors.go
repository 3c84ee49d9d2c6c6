package splitter

import (
	"errors"

	"github.com/bitfsorg/revsplit-go/revshare"
)

var (
	// ErrTransferFailure indicates a payout could not be delivered. The
	// whole invocation was rolled back.
	ErrTransferFailure = errors.New("splitter: transfer failure")

	// ErrReentrantCall indicates a mutating call arrived while another call of
	// the same splitter was in flight. Nothing was changed; the caller may retry.
	ErrReentrantCall = errors.New("splitter: reentrant call")

	// ErrNoTokens indicates DistributeTokens was called with an empty list.
	ErrNoTokens = errors.New("splitter: no tokens given")

	// ErrInvalidEvent indicates a log is not a well-formed royalty event.
	ErrInvalidEvent = errors.New("splitter: invalid event")
)

// Registry errors surfaced unchanged by the splitter.
var (
	ErrUnauthorized         = revshare.ErrUnauthorized
	ErrInvalidConfiguration = revshare.ErrInvalidConfiguration
	ErrNoReceivers          = revshare.ErrNoReceivers
)
