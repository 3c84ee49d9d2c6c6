package network

import (
	"context"
	"fmt"
	"math"
)

// Compile-time interface check.
var _ SettlementService = (*RPCClient)(nil)

// btcToSat converts a BTC float64 amount (as returned by the RPC node) to satoshis.
// It uses math.Round to avoid floating-point truncation issues.
func btcToSat(btc float64) uint64 {
	return uint64(math.Round(btc * 1e8))
}

// listUnspentResult maps the JSON fields returned by the Bitcoin RPC listunspent call.
type listUnspentResult struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Amount        float64 `json:"amount"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Address       string  `json:"address"`
	Confirmations int64   `json:"confirmations"`
}

// ListUnspent returns all unspent transaction outputs for the given address.
// It calls `listunspent 0 9999999 ["address"]` and converts BTC amounts to satoshis.
func (c *RPCClient) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	params := []interface{}{0, 9999999, []string{address}}
	var results []listUnspentResult
	if err := c.Call(ctx, "listunspent", params, &results); err != nil {
		return nil, err
	}

	utxos := make([]*UTXO, len(results))
	for i, r := range results {
		utxos[i] = &UTXO{
			TxID:          r.TxID,
			Vout:          r.Vout,
			Amount:        btcToSat(r.Amount),
			ScriptPubKey:  r.ScriptPubKey,
			Address:       r.Address,
			Confirmations: r.Confirmations,
		}
	}
	return utxos, nil
}

// BroadcastTx submits a raw transaction hex to the network and returns the txid.
// It calls `sendrawtransaction "hex"`. A transaction the node refuses is
// wrapped with ErrBroadcastRejected and one it already holds with ErrTxKnown.
// Transport failures keep ErrConnectionFailed: the node may have accepted the
// transaction before the reply was lost.
func (c *RPCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	params := []interface{}{rawTxHex}
	var txid string
	err := c.Call(ctx, "sendrawtransaction", params, &txid)
	switch rpcErrorCode(err) {
	case 0:
		if err != nil {
			return "", err
		}
		return txid, nil
	case RPCErrAlreadyInChain:
		return "", fmt.Errorf("%w: %w", ErrTxKnown, err)
	default:
		return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
	}
}

// verboseTxResult maps the JSON fields from getrawtransaction with verbose=true.
type verboseTxResult struct {
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
	BlockHeight   uint64 `json:"blockheight"`
}

// GetTxStatus returns the confirmation status of a transaction.
// It calls `getrawtransaction "txid" true` (verbose mode) to get confirmation info.
func (c *RPCClient) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	params := []interface{}{txid, true}
	var result verboseTxResult
	if err := c.Call(ctx, "getrawtransaction", params, &result); err != nil {
		if rpcErrorCode(err) == RPCErrNoSuchTx {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
		}
		return nil, err
	}
	return &TxStatus{
		Confirmed:     result.Confirmations > 0,
		Confirmations: result.Confirmations,
		BlockHash:     result.BlockHash,
		BlockHeight:   result.BlockHeight,
	}, nil
}

// GetRawTx returns the raw hex of a transaction known to the node.
// It calls `getrawtransaction "txid" false`.
func (c *RPCClient) GetRawTx(ctx context.Context, txid string) (string, error) {
	params := []interface{}{txid, false}
	var rawHex string
	if err := c.Call(ctx, "getrawtransaction", params, &rawHex); err != nil {
		if rpcErrorCode(err) == RPCErrNoSuchTx {
			return "", fmt.Errorf("%w: %s", ErrTxNotFound, txid)
		}
		return "", err
	}
	return rawHex, nil
}

// ImportAddress calls `importaddress "address" "" false`. Rescanning is left
// to the operator; a freshly funded holding address is found without it.
func (c *RPCClient) ImportAddress(ctx context.Context, address string) error {
	params := []interface{}{address, "", false}
	return c.Call(ctx, "importaddress", params, nil)
}
