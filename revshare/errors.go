package revshare

import "errors"

var (
	// ErrInvalidRegistryData indicates the serialized registry is malformed.
	ErrInvalidRegistryData = errors.New("revshare: invalid registry data")

	// ErrTooManyEntries indicates the registry cannot be encoded.
	ErrTooManyEntries = errors.New("revshare: too many receiver entries")

	// ErrUnauthorized indicates the caller is not the registry controller.
	ErrUnauthorized = errors.New("revshare: caller is not the controller")

	// ErrInvalidConfiguration indicates a rejected receiver configuration.
	ErrInvalidConfiguration = errors.New("revshare: invalid receiver configuration")

	// ErrNoReceivers indicates a distribution was attempted on an empty registry.
	ErrNoReceivers = errors.New("revshare: empty receiver registry")

	// ErrInvalidAddress indicates an address could not be parsed or is zero.
	ErrInvalidAddress = errors.New("revshare: invalid address")

	// ErrHoldingMismatch indicates the stored registry belongs to another holding account.
	ErrHoldingMismatch = errors.New("revshare: registry belongs to another holding account")

	// ErrRegistryNotFound indicates no registry state has been stored yet.
	ErrRegistryNotFound = errors.New("revshare: registry not found")

	// ErrDistributionMismatch indicates payouts do not match the registry proportions.
	ErrDistributionMismatch = errors.New("revshare: distribution does not match registry")
)

// Caller-facing reason strings. Callers match on these, keep the wording.
const (
	ReasonNoReceivers  = "No receivers"
	ReasonTotalShare   = "Total revenue must be 10000"
	ReasonNotOwner     = "Ownable: caller is not the owner"
	ReasonZeroReceiver = "Receiver is the zero address"
	ReasonShareRange   = "Share exceeds 10000"
	ReasonZeroOwner    = "Ownable: new owner is the zero address"
)

// RevertError pairs a sentinel error with the reason string reported to callers.
type RevertError struct {
	Err    error
	Reason string
}

func (e *RevertError) Error() string { return e.Err.Error() + ": " + e.Reason }

func (e *RevertError) Unwrap() error { return e.Err }

// Revert wraps err with a caller-facing reason.
func Revert(err error, reason string) error {
	return &RevertError{Err: err, Reason: reason}
}

// Reason extracts the caller-facing reason from err, or "" if err carries none.
func Reason(err error) string {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
