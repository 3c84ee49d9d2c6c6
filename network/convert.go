package network

import (
	"encoding/hex"
	"fmt"

	"github.com/bitfsorg/revsplit-go/tx"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// ToTx converts a node UTXO into a spendable tx.UTXO signed by key.
// The node reports txids in display order; tx.UTXO holds internal byte order.
func (u *UTXO) ToTx(key *ec.PrivateKey) (*tx.UTXO, error) {
	txID, err := hex.DecodeString(u.TxID)
	if err != nil || len(txID) != tx.TxIDLen {
		return nil, fmt.Errorf("%w: txid %q", ErrInvalidResponse, u.TxID)
	}
	for i, j := 0, len(txID)-1; i < j; i, j = i+1, j-1 {
		txID[i], txID[j] = txID[j], txID[i]
	}
	scriptPK, err := hex.DecodeString(u.ScriptPubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: script for %s:%d: %w", ErrInvalidResponse, u.TxID, u.Vout, err)
	}
	return &tx.UTXO{
		TxID:         txID,
		Vout:         u.Vout,
		Amount:       u.Amount,
		ScriptPubKey: scriptPK,
		PrivateKey:   key,
	}, nil
}
