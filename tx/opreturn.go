package tx

import (
	"bytes"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/google/uuid"
)

// PayoutFlagBytes marks a settlement record: "rvsp" in ASCII.
var PayoutFlagBytes = []byte{0x72, 0x76, 0x73, 0x70}

const (
	// PayoutFlag is the string representation of the payout flag.
	PayoutFlag = "rvsp"

	// DustLimit is the minimum P2PKH output value in satoshis.
	DustLimit = uint64(546)

	// DefaultFeeRate is the default fee rate in sat/KB.
	DefaultFeeRate = uint64(1)

	// CompressedPubKeyLen is the length of a compressed public key.
	CompressedPubKeyLen = 33

	// TxIDLen is the length of a transaction ID.
	TxIDLen = 32

	// DistributionIDLen is the length of a distribution id.
	DistributionIDLen = 16
)

// BuildPayoutRecord constructs the OP_RETURN data pushes of a settlement.
//
// Layout:
//
//	pushdata[0]: PayoutFlag      (4 bytes, "rvsp")
//	pushdata[1]: Distribution ID (16 bytes, the ledger receipt id)
func BuildPayoutRecord(id uuid.UUID) ([][]byte, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: distribution id", ErrNilParam)
	}
	idBytes := make([]byte, DistributionIDLen)
	copy(idBytes, id[:])
	return [][]byte{PayoutFlagBytes, idBytes}, nil
}

// ParsePayoutRecord extracts the distribution id from OP_RETURN data pushes.
func ParsePayoutRecord(pushes [][]byte) (uuid.UUID, error) {
	if len(pushes) != 2 {
		return uuid.Nil, fmt.Errorf("%w: expected 2 data pushes, got %d", ErrInvalidOPReturn, len(pushes))
	}
	if !bytes.Equal(pushes[0], PayoutFlagBytes) {
		return uuid.Nil, fmt.Errorf("%w: missing payout flag", ErrNotPayoutTx)
	}
	if len(pushes[1]) != DistributionIDLen {
		return uuid.Nil, fmt.Errorf("%w: distribution id must be %d bytes, got %d",
			ErrInvalidOPReturn, DistributionIDLen, len(pushes[1]))
	}
	id, err := uuid.FromBytes(pushes[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidOPReturn, err)
	}
	return id, nil
}

// PayoutRecordFromTx returns the distribution id recorded in a raw
// transaction, or ErrNotPayoutTx if none of its outputs is a payout record.
func PayoutRecordFromTx(rawHex string) (uuid.UUID, error) {
	t, err := transaction.NewTransactionFromHex(rawHex)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: decode transaction: %w", ErrInvalidOPReturn, err)
	}
	for _, out := range t.Outputs {
		if out.LockingScript == nil || !out.LockingScript.IsData() {
			continue
		}
		chunks, err := script.DecodeScript(*out.LockingScript, script.DecodeOptionsParseOpReturn)
		if err != nil {
			continue
		}
		var pushes [][]byte
		for _, c := range chunks {
			if c.Op == script.OpFALSE || c.Op == script.OpRETURN {
				continue
			}
			pushes = append(pushes, c.Data)
		}
		if id, err := ParsePayoutRecord(pushes); err == nil {
			return id, nil
		}
	}
	return uuid.Nil, ErrNotPayoutTx
}

// EstimateFee estimates the transaction fee for a given size and fee rate.
// Returns ceil(txSizeBytes * feeRate / 1000).
func EstimateFee(txSizeBytes int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	fee := uint64(txSizeBytes) * feeRate
	// Ceiling division by 1000
	return (fee + 999) / 1000
}

// EstimateTxSize provides a rough estimate of a payout transaction's size in
// bytes, including its OP_RETURN record.
func EstimateTxSize(numInputs, numOutputs int) int {
	// Base: version(4) + locktime(4) + input count varint(1) + output count varint(1) = 10
	// Per input: prevhash(32) + previndex(4) + scriptlen varint(1) + script(~107 for P2PKH) + sequence(4) = 148
	// Per output: value(8) + scriptlen varint(1) + script(~25 for P2PKH) = 34
	// Record: value(8) + scriptlen(1) + OP_FALSE OP_RETURN(2) + flag(5) + id(17) = 33

	base := 10
	if numOutputs > 250 {
		base += 2 // output count varint grows to 3 bytes
	}
	inputs := numInputs * 148
	outputs := numOutputs * 34
	record := 8 + 1 + 2 + 1 + len(PayoutFlagBytes) + 1 + DistributionIDLen

	return base + inputs + outputs + record
}
