package network

import "context"

// SettlementService is the chain access needed to settle distributions.
type SettlementService interface {
	// ListUnspent returns all unspent transaction outputs for the given address.
	ListUnspent(ctx context.Context, address string) ([]*UTXO, error)

	// BroadcastTx submits a raw transaction hex to the network and returns the txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)

	// GetTxStatus returns the confirmation status of a transaction.
	GetTxStatus(ctx context.Context, txid string) (*TxStatus, error)

	// GetRawTx returns the raw hex of a transaction, or ErrTxNotFound.
	GetRawTx(ctx context.Context, txid string) (string, error)

	// ImportAddress imports a watch-only address into the node's wallet so that
	// ListUnspent can find its UTXOs. Safe to call multiple times.
	ImportAddress(ctx context.Context, address string) error
}

// UTXO represents an unspent transaction output as reported by the node.
type UTXO struct {
	TxID          string `json:"txid"` // display (byte-reversed) hex
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"`
	ScriptPubKey  string `json:"script_pubkey"`
	Address       string `json:"address"`
	Confirmations int64  `json:"confirmations"`
}

// TxStatus represents the confirmation status of a transaction.
type TxStatus struct {
	Confirmed     bool   `json:"confirmed"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"block_hash"`
	BlockHeight   uint64 `json:"block_height"`
}
