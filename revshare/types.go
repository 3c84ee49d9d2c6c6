package revshare

import "github.com/holiman/uint256"

// TotalBps is the share total every non-empty receiver configuration must reach.
const TotalBps = 10000

// AddressSize is the length of an account identity in bytes.
const AddressSize = 20

// Address identifies an account: a receiver, the controller, the holding
// account, or a token ledger.
type Address [AddressSize]byte

// TokenID identifies a token ledger. It shares the Address representation.
type TokenID = Address

// ReceiverShare is one slot of the receiver configuration.
type ReceiverShare struct {
	Receiver Address `json:"receiver"`
	ShareBps uint16  `json:"bps"` // 0..10000
}

// RegistryState is the persisted form of the receiver registry.
type RegistryState struct {
	Holding    Address         // Account whose balances are distributed
	Controller Address         // Only identity allowed to replace Entries
	Version    uint64          // Bumped on every accepted mutation
	Entries    []ReceiverShare // Ordered; duplicates allowed
}

// Clone returns a deep copy of the state.
func (s *RegistryState) Clone() *RegistryState {
	cp := *s
	cp.Entries = cloneEntries(s.Entries)
	return &cp
}

// Payout is a single receiver's entitlement in one distribution.
type Payout struct {
	Receiver Address
	ShareBps uint16
	Amount   *uint256.Int
}

// Distribution is the result of splitting one balance snapshot.
type Distribution struct {
	Balance *uint256.Int // Snapshot the payouts were computed from
	Payouts []Payout     // Registry order
	Total   *uint256.Int // Sum of payouts
	Dust    *uint256.Int // Balance - Total, left on the holding account
}

func cloneEntries(entries []ReceiverShare) []ReceiverShare {
	if entries == nil {
		return nil
	}
	out := make([]ReceiverShare, len(entries))
	copy(out, entries)
	return out
}
