package tx

import (
	"fmt"

	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/google/uuid"
)

// PayoutParams holds the inputs of a settlement transaction.
type PayoutParams struct {
	Inputs         []*UTXO           // Holding-address UTXOs to spend
	Payouts        []revshare.Payout // Registry order
	ChangeAddr     revshare.Address  // Receives the change, usually the holding address
	FeeRate        uint64            // sat/KB, 0 means DefaultFeeRate
	DistributionID uuid.UUID
}

// BuildPayoutTx constructs the unsigned settlement of one native distribution.
//
// Output layout:
//
//	[0]      OP_FALSE OP_RETURN [PayoutFlag, DistributionID]
//	[1..n]   P2PKH -> receiver, one per non-zero payout, registry order
//	[last]   P2PKH -> ChangeAddr (omitted when at or below dust)
func BuildPayoutTx(params *PayoutParams) (*PayoutTx, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params", ErrNilParam)
	}
	if len(params.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", ErrNilParam)
	}
	if params.ChangeAddr.IsZero() {
		return nil, fmt.Errorf("%w: change address", ErrNilParam)
	}

	// Validate payouts and keep the non-zero ones.
	outputs := make([]PayoutOutput, 0, len(params.Payouts))
	totalPayout := uint64(0)
	for i, p := range params.Payouts {
		if p.Amount == nil || p.Amount.IsZero() {
			continue
		}
		if !p.Amount.IsUint64() {
			return nil, fmt.Errorf("%w: payout %d is %s", ErrAmountTooLarge, i, p.Amount.Dec())
		}
		amount := p.Amount.Uint64()
		if amount < DustLimit {
			return nil, fmt.Errorf("%w: payout %d to %s is %d sat", ErrDustOutput, i, p.Receiver, amount)
		}
		if totalPayout+amount < totalPayout {
			return nil, fmt.Errorf("%w: payout total", ErrAmountTooLarge)
		}
		totalPayout += amount
		outputs = append(outputs, PayoutOutput{Slot: i, Receiver: p.Receiver, Amount: amount})
	}
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}

	totalAvailable := uint64(0)
	for i, in := range params.Inputs {
		if in == nil {
			return nil, fmt.Errorf("%w: input[%d]", ErrNilParam, i)
		}
		if totalAvailable+in.Amount < totalAvailable {
			return nil, fmt.Errorf("%w: input total", ErrAmountTooLarge)
		}
		totalAvailable += in.Amount
	}

	feeRate := params.FeeRate
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	// Payout outputs + 1 change.
	estFee := EstimateFee(EstimateTxSize(len(params.Inputs), len(outputs)+1), feeRate)

	totalNeeded := totalPayout + estFee
	if totalAvailable < totalNeeded {
		return nil, fmt.Errorf("%w: need %d sat, have %d sat",
			ErrInsufficientFunds, totalNeeded, totalAvailable)
	}

	sdkTx := transaction.NewTransaction()

	// --- Add inputs ---
	for i, in := range params.Inputs {
		hash, err := chainhash.NewHash(in.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: input[%d] TxID: %w", ErrScriptBuild, i, err)
		}
		sdkTx.AddInput(&transaction.TransactionInput{
			SourceTXID:       hash,
			SourceTxOutIndex: in.Vout,
			SequenceNumber:   transaction.DefaultSequenceNumber,
		})
	}

	// --- Add outputs ---

	record, err := BuildPayoutRecord(params.DistributionID)
	if err != nil {
		return nil, err
	}
	recordScript, err := buildOPReturnScript(record)
	if err != nil {
		return nil, err
	}
	sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{
		Satoshis:      0,
		LockingScript: recordScript,
	})
	vout := uint32(1)

	for i := range outputs {
		out, err := BuildP2PKHOutput(outputs[i].Receiver[:], outputs[i].Amount)
		if err != nil {
			return nil, fmt.Errorf("tx: payout %d: %w", outputs[i].Slot, err)
		}
		sdkTx.Outputs = append(sdkTx.Outputs, out)
		outputs[i].Vout = vout
		vout++
	}

	// Change output.
	changeAmount := totalAvailable - totalNeeded
	fee := estFee
	var changeUTXO *UTXO

	if changeAmount > DustLimit {
		out, err := BuildP2PKHOutput(params.ChangeAddr[:], changeAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: change: %w", ErrScriptBuild, err)
		}
		sdkTx.Outputs = append(sdkTx.Outputs, out)
		changeUTXO = &UTXO{
			Vout:         vout,
			Amount:       changeAmount,
			ScriptPubKey: []byte(*out.LockingScript),
		}
	} else {
		fee += changeAmount
	}

	return &PayoutTx{
		RawTx:      sdkTx.Bytes(),
		Fee:        fee,
		Outputs:    outputs,
		ChangeUTXO: changeUTXO,
	}, nil
}
