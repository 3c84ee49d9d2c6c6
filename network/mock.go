package network

import "context"

// MockSettlementService is a test double for SettlementService.
// All function fields must be set before the corresponding method is called.
type MockSettlementService struct {
	ListUnspentFn   func(ctx context.Context, address string) ([]*UTXO, error)
	BroadcastTxFn   func(ctx context.Context, rawTxHex string) (string, error)
	GetTxStatusFn   func(ctx context.Context, txid string) (*TxStatus, error)
	GetRawTxFn      func(ctx context.Context, txid string) (string, error)
	ImportAddressFn func(ctx context.Context, address string) error
}

var _ SettlementService = (*MockSettlementService)(nil)

func (m *MockSettlementService) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	return m.ListUnspentFn(ctx, address)
}
func (m *MockSettlementService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	return m.BroadcastTxFn(ctx, rawTxHex)
}
func (m *MockSettlementService) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	return m.GetTxStatusFn(ctx, txid)
}
func (m *MockSettlementService) GetRawTx(ctx context.Context, txid string) (string, error) {
	return m.GetRawTxFn(ctx, txid)
}
func (m *MockSettlementService) ImportAddress(ctx context.Context, address string) error {
	return m.ImportAddressFn(ctx, address)
}
