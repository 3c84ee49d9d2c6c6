package tx

import (
	"github.com/bitfsorg/revsplit-go/revshare"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// UTXO represents an unspent output of the holding address.
type UTXO struct {
	TxID         []byte         `json:"txid"`          // 32 bytes
	Vout         uint32         `json:"vout"`
	Amount       uint64         `json:"amount"`        // satoshis
	ScriptPubKey []byte         `json:"script_pubkey"` // locking script bytes
	PrivateKey   *ec.PrivateKey `json:"-"`             // signing key (not serialized)
}

// PayoutOutput is the on-chain output of one receiver slot.
type PayoutOutput struct {
	Slot     int // Index in the distribution's payout list
	Receiver revshare.Address
	Vout     uint32
	Amount   uint64
}

// PayoutTx wraps a built settlement transaction.
type PayoutTx struct {
	RawTx      []byte         // Serialized transaction bytes
	TxID       []byte         // Set once signed (32 bytes)
	Fee        uint64         // Inputs minus outputs
	Outputs    []PayoutOutput // Registry order, zero payouts omitted
	ChangeUTXO *UTXO          // Last output (nil if dust)
}
