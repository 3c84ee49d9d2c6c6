package revshare

import "github.com/holiman/uint256"

var totalBps = uint256.NewInt(TotalBps)

// ComputePayouts splits balance across entries in registry order.
//
// Each receiver gets floor(balance * bps / 10000). The remainder is not
// reassigned; it stays with the holding account as dust and is part of the
// next snapshot. The product is computed at 512 bits, so no balance overflows.
func ComputePayouts(balance *uint256.Int, entries []ReceiverShare) (*Distribution, error) {
	if len(entries) == 0 {
		return nil, Revert(ErrNoReceivers, ReasonNoReceivers)
	}
	if err := ValidateShares(entries); err != nil {
		return nil, err
	}
	if balance == nil {
		balance = new(uint256.Int)
	}

	dist := &Distribution{
		Balance: balance.Clone(),
		Payouts: make([]Payout, len(entries)),
		Total:   new(uint256.Int),
	}
	for i, entry := range entries {
		amount, _ := new(uint256.Int).MulDivOverflow(balance, uint256.NewInt(uint64(entry.ShareBps)), totalBps)
		dist.Payouts[i] = Payout{
			Receiver: entry.Receiver,
			ShareBps: entry.ShareBps,
			Amount:   amount,
		}
		dist.Total.Add(dist.Total, amount)
	}
	dist.Dust = new(uint256.Int).Sub(balance, dist.Total)

	return dist, nil
}
