package revshare

import "fmt"

// ValidateShares checks a replacement receiver list. An empty list is valid
// and disables distribution; otherwise shares must sum to exactly TotalBps.
func ValidateShares(entries []ReceiverShare) error {
	if len(entries) == 0 {
		return nil
	}
	var total uint64
	for i, e := range entries {
		if e.Receiver.IsZero() {
			return fmt.Errorf("entry %d: %w", i, Revert(ErrInvalidConfiguration, ReasonZeroReceiver))
		}
		if e.ShareBps > TotalBps {
			return fmt.Errorf("entry %d: %w", i, Revert(ErrInvalidConfiguration, ReasonShareRange))
		}
		total += uint64(e.ShareBps)
	}
	if total != TotalBps {
		return Revert(ErrInvalidConfiguration, ReasonTotalShare)
	}
	return nil
}

// ValidateDistribution checks that a reported distribution matches what the
// registry entries yield for the same balance snapshot.
func ValidateDistribution(dist *Distribution, entries []ReceiverShare) error {
	if dist == nil {
		return fmt.Errorf("%w: nil distribution", ErrDistributionMismatch)
	}
	if len(dist.Payouts) != len(entries) {
		return fmt.Errorf("%w: payout count %d != entry count %d",
			ErrDistributionMismatch, len(dist.Payouts), len(entries))
	}

	expected, err := ComputePayouts(dist.Balance, entries)
	if err != nil {
		return err
	}

	for i := range dist.Payouts {
		got, want := dist.Payouts[i], expected.Payouts[i]
		if got.Receiver != want.Receiver {
			return fmt.Errorf("%w: entry %d: receiver mismatch", ErrDistributionMismatch, i)
		}
		if got.Amount == nil {
			return fmt.Errorf("%w: entry %d: missing amount", ErrDistributionMismatch, i)
		}
		if !got.Amount.Eq(want.Amount) {
			return fmt.Errorf("%w: entry %d: amount %s != expected %s",
				ErrDistributionMismatch, i, got.Amount.Dec(), want.Amount.Dec())
		}
	}
	if dist.Total != nil && !dist.Total.Eq(expected.Total) {
		return fmt.Errorf("%w: total %s != expected %s", ErrDistributionMismatch, dist.Total.Dec(), expected.Total.Dec())
	}
	return nil
}
