// Package ledger tracks multi-asset balances of accounts with atomic
// write transactions and a committed, append-only event log.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/holiman/uint256"
)

// Log is one committed event record.
type Log struct {
	Seq   uint64   // Assigned at commit, strictly increasing per ledger
	Topic [32]byte // Event signature hash
	Name  string
	Data  []byte
}

// Receiver is the acceptance hook of an account that runs code on incoming
// value. Returning an error refuses the transfer.
type Receiver interface {
	OnReceive(ctx context.Context, asset Asset, from revshare.Address, amount *uint256.Int) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, asset Asset, from revshare.Address, amount *uint256.Int) error

func (f ReceiverFunc) OnReceive(ctx context.Context, asset Asset, from revshare.Address, amount *uint256.Int) error {
	return f(ctx, asset, from, amount)
}

// Tx is a write transaction. Changes and emitted logs become visible only
// after Commit; Rollback discards all of them. A Tx that saw a failed
// Transfer or Credit refuses to commit.
//
// Only one write Tx is open per ledger at a time; Begin blocks until the
// previous one finishes.
type Tx interface {
	Balance(asset Asset, account revshare.Address) (*uint256.Int, error)

	// Transfer debits from, credits to, then invokes the recipient's Receiver
	// hook. A zero amount is a valid transfer and still reaches the hook.
	Transfer(ctx context.Context, asset Asset, from, to revshare.Address, amount *uint256.Int) error

	// Credit mints amount to an account.
	Credit(asset Asset, to revshare.Address, amount *uint256.Int) error

	Emit(log Log) error
	Commit() error

	// Rollback is a no-op on a closed Tx, so it is safe to defer.
	Rollback() error
}

// Ledger is the read side plus the entry point for write transactions.
type Ledger interface {
	Begin(ctx context.Context) (Tx, error)
	Balance(ctx context.Context, asset Asset, account revshare.Address) (*uint256.Int, error)

	// Logs returns committed logs with Seq >= fromSeq, in order.
	Logs(ctx context.Context, fromSeq uint64) ([]Log, error)

	// SetReceiver installs (or with nil, removes) the acceptance hook of account.
	SetReceiver(account revshare.Address, r Receiver)

	Close() error
}

// hooks is the receiver registry shared by both ledger implementations.
type hooks struct {
	mu        sync.RWMutex
	receivers map[revshare.Address]Receiver
}

func (h *hooks) SetReceiver(account revshare.Address, r Receiver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r == nil {
		delete(h.receivers, account)
		return
	}
	if h.receivers == nil {
		h.receivers = make(map[revshare.Address]Receiver)
	}
	h.receivers[account] = r
}

func (h *hooks) lookup(account revshare.Address) Receiver {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.receivers[account]
}

// balances is the per-implementation storage behind a Tx.
type balances interface {
	get(asset Asset, account revshare.Address) (*uint256.Int, error)
	put(asset Asset, account revshare.Address, v *uint256.Int) error
}

func transfer(ctx context.Context, st balances, h *hooks, asset Asset, from, to revshare.Address, amount *uint256.Int) error {
	if err := asset.validate(); err != nil {
		return err
	}
	if amount == nil {
		amount = new(uint256.Int)
	}

	fromBal, err := st.get(asset, from)
	if err != nil {
		return err
	}
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientBalance, from, fromBal.Dec(), asset, amount.Dec())
	}
	if err := st.put(asset, from, new(uint256.Int).Sub(fromBal, amount)); err != nil {
		return err
	}

	toBal, err := st.get(asset, to)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(toBal, amount)
	if overflow {
		return fmt.Errorf("%w: %s %s", ErrBalanceOverflow, to, asset)
	}
	if err := st.put(asset, to, next); err != nil {
		return err
	}

	if r := h.lookup(to); r != nil {
		if err := r.OnReceive(ctx, asset, from, amount.Clone()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrTransferRejected, to, err)
		}
	}
	return nil
}

func credit(st balances, asset Asset, to revshare.Address, amount *uint256.Int) error {
	if err := asset.validate(); err != nil {
		return err
	}
	if amount == nil {
		return nil
	}
	bal, err := st.get(asset, to)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return fmt.Errorf("%w: %s %s", ErrBalanceOverflow, to, asset)
	}
	return st.put(asset, to, next)
}
