package ledger

import (
	"context"
	"sync"

	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/holiman/uint256"
)

type accountKey struct {
	asset   Asset
	account revshare.Address
}

// MemLedger is an in-memory Ledger. Write transactions stage their changes
// in an overlay that is merged into the committed state on Commit.
type MemLedger struct {
	hooks

	writer sync.Mutex // held from Begin to Commit/Rollback

	mu       sync.RWMutex
	balances map[accountKey]*uint256.Int
	logs     []Log
	nextSeq  uint64
}

var _ Ledger = (*MemLedger)(nil)

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances: make(map[accountKey]*uint256.Int),
		nextSeq:  1,
	}
}

// Begin opens a write transaction, blocking while another one is open.
func (l *MemLedger) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.writer.Lock()
	return &memTx{l: l, dirty: make(map[accountKey]*uint256.Int)}, nil
}

// Balance returns the committed balance of account.
func (l *MemLedger) Balance(ctx context.Context, asset Asset, account revshare.Address) (*uint256.Int, error) {
	if err := asset.validate(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.committed(accountKey{asset, account}), nil
}

// Logs returns committed logs with Seq >= fromSeq.
func (l *MemLedger) Logs(ctx context.Context, fromSeq uint64) ([]Log, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Log
	for _, lg := range l.logs {
		if lg.Seq >= fromSeq {
			lg.Data = append([]byte(nil), lg.Data...)
			out = append(out, lg)
		}
	}
	return out, nil
}

func (l *MemLedger) Close() error { return nil }

// committed must be called with l.mu held.
func (l *MemLedger) committed(k accountKey) *uint256.Int {
	if v, ok := l.balances[k]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

type memTx struct {
	l      *MemLedger
	dirty  map[accountKey]*uint256.Int
	logs   []Log
	done   bool
	failed bool
}

func (t *memTx) get(asset Asset, account revshare.Address) (*uint256.Int, error) {
	k := accountKey{asset, account}
	if v, ok := t.dirty[k]; ok {
		return v.Clone(), nil
	}
	t.l.mu.RLock()
	defer t.l.mu.RUnlock()
	return t.l.committed(k), nil
}

func (t *memTx) put(asset Asset, account revshare.Address, v *uint256.Int) error {
	t.dirty[accountKey{asset, account}] = v.Clone()
	return nil
}

func (t *memTx) Balance(asset Asset, account revshare.Address) (*uint256.Int, error) {
	if t.done {
		return nil, ErrTxClosed
	}
	if err := asset.validate(); err != nil {
		return nil, err
	}
	return t.get(asset, account)
}

func (t *memTx) Transfer(ctx context.Context, asset Asset, from, to revshare.Address, amount *uint256.Int) error {
	if t.done {
		return ErrTxClosed
	}
	if err := transfer(ctx, t, &t.l.hooks, asset, from, to, amount); err != nil {
		t.failed = true
		return err
	}
	return nil
}

func (t *memTx) Credit(asset Asset, to revshare.Address, amount *uint256.Int) error {
	if t.done {
		return ErrTxClosed
	}
	if err := credit(t, asset, to, amount); err != nil {
		t.failed = true
		return err
	}
	return nil
}

func (t *memTx) Emit(log Log) error {
	if t.done {
		return ErrTxClosed
	}
	log.Data = append([]byte(nil), log.Data...)
	t.logs = append(t.logs, log)
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return ErrTxClosed
	}
	if t.failed {
		t.finish()
		return ErrTxFailed
	}

	t.l.mu.Lock()
	for k, v := range t.dirty {
		t.l.balances[k] = v
	}
	for _, lg := range t.logs {
		lg.Seq = t.l.nextSeq
		t.l.nextSeq++
		t.l.logs = append(t.l.logs, lg)
	}
	t.l.mu.Unlock()

	t.finish()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.done = true
	t.dirty = nil
	t.logs = nil
	t.l.writer.Unlock()
}
