// Package splitter distributes the balances of a holding account to the
// receivers of a revshare.Registry.
//
// Every mutating call runs in one ledger transaction: either all payouts and
// the event of the call are committed, or nothing is.
package splitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitfsorg/revsplit-go/ledger"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Params groups the dependencies of a Splitter.
type Params struct {
	Ledger   ledger.Ledger
	Registry *revshare.Registry
	Logger   *zap.Logger
}

// Distribution is the outcome of one asset in a distribution call.
type Distribution struct {
	Asset ledger.Asset
	revshare.Distribution
}

// Receipt describes a committed distribution call.
type Receipt struct {
	ID            uuid.UUID
	Caller        revshare.Address
	Distributions []Distribution
}

// Splitter is the distribution engine of one holding account.
type Splitter struct {
	mu       sync.Mutex
	ledger   ledger.Ledger
	registry *revshare.Registry
	log      *zap.Logger
}

// inFlightKey marks a context that is inside a mutating call of a Splitter.
type inFlightKey struct{}

// New creates a Splitter.
func New(p Params) (*Splitter, error) {
	if p.Ledger == nil {
		return nil, fmt.Errorf("splitter: nil ledger")
	}
	if p.Registry == nil {
		return nil, fmt.Errorf("splitter: nil registry")
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Splitter{
		ledger:   p.Ledger,
		registry: p.Registry,
		log:      log.With(zap.Stringer("holding", p.Registry.Holding())),
	}, nil
}

// enter admits one mutating call at a time and never waits. A call arriving
// while another is in flight fails with ErrReentrantCall, whichever context
// it carries; the context marker only sharpens the message for calls made
// from a receiver hook.
func (s *Splitter) enter(ctx context.Context) (context.Context, func(), error) {
	if owner, _ := ctx.Value(inFlightKey{}).(*Splitter); owner == s {
		return nil, nil, fmt.Errorf("%w: called from a receiver hook", ErrReentrantCall)
	}
	if !s.mu.TryLock() {
		return nil, nil, fmt.Errorf("%w: another call is in flight", ErrReentrantCall)
	}
	return context.WithValue(ctx, inFlightKey{}, s), s.mu.Unlock, nil
}

// UpdateReceivers replaces the receiver list. Only the controller may call it.
func (s *Splitter) UpdateReceivers(ctx context.Context, caller revshare.Address, entries []revshare.ReceiverShare) error {
	_, leave, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	if err := s.registry.UpdateReceivers(caller, entries); err != nil {
		s.log.Warn("receiver update rejected",
			zap.Stringer("caller", caller), zap.Int("entries", len(entries)), zap.Error(err))
		return err
	}
	s.log.Info("receivers updated",
		zap.Int("entries", len(entries)), zap.Uint64("version", s.registry.State().Version))
	return nil
}

// TransferController hands the controller capability to next.
func (s *Splitter) TransferController(ctx context.Context, caller, next revshare.Address) error {
	_, leave, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	if err := s.registry.TransferControl(caller, next); err != nil {
		return err
	}
	s.log.Info("controller transferred", zap.Stringer("controller", next))
	return nil
}

// DistributeNative pays the native balance of the holding account to the
// receivers. Anyone may call it.
func (s *Splitter) DistributeNative(ctx context.Context, caller revshare.Address) (*Receipt, error) {
	ctx, leave, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	return s.distribute(ctx, caller, []ledger.Asset{ledger.Native})
}

// DistributeTokens pays the holding account's balance of each token, in the
// given order. All tokens of the call commit together or not at all. A token
// listed twice is distributed twice; the second pass sees only the dust.
func (s *Splitter) DistributeTokens(ctx context.Context, caller revshare.Address, tokens []revshare.TokenID) (*Receipt, error) {
	ctx, leave, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	if len(s.registry.Snapshot()) == 0 {
		return nil, revshare.Revert(ErrNoReceivers, revshare.ReasonNoReceivers)
	}
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	assets := make([]ledger.Asset, len(tokens))
	for i, tok := range tokens {
		if tok.IsZero() {
			return nil, fmt.Errorf("%w: token %d is the zero address", ledger.ErrInvalidAsset, i)
		}
		assets[i] = ledger.Token(tok)
	}
	return s.distribute(ctx, caller, assets)
}

func (s *Splitter) distribute(ctx context.Context, caller revshare.Address, assets []ledger.Asset) (*Receipt, error) {
	// Registry and balances are read once, before any transfer runs.
	entries := s.registry.Snapshot()
	if len(entries) == 0 {
		return nil, revshare.Revert(ErrNoReceivers, revshare.ReasonNoReceivers)
	}
	holding := s.registry.Holding()

	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	receipt := &Receipt{ID: uuid.New(), Caller: caller}
	log := s.log.With(zap.Stringer("id", receipt.ID), zap.Stringer("caller", caller))

	for _, asset := range assets {
		balance, err := tx.Balance(asset, holding)
		if err != nil {
			return nil, fmt.Errorf("splitter: read %s balance: %w", asset, err)
		}
		dist, err := revshare.ComputePayouts(balance, entries)
		if err != nil {
			return nil, err
		}

		for i, p := range dist.Payouts {
			if err := tx.Transfer(ctx, asset, holding, p.Receiver, p.Amount); err != nil {
				log.Warn("payout failed, rolling back",
					zap.Stringer("asset", asset), zap.Int("slot", i),
					zap.Stringer("receiver", p.Receiver), zap.Error(err))
				return nil, fmt.Errorf("%w: %s payout %d to %s: %w", ErrTransferFailure, asset, i, p.Receiver, err)
			}
		}

		event, err := encodePaid(receipt.ID, asset, dist)
		if err != nil {
			return nil, err
		}
		if err := tx.Emit(event); err != nil {
			return nil, fmt.Errorf("splitter: emit %s: %w", event.Name, err)
		}
		receipt.Distributions = append(receipt.Distributions, Distribution{Asset: asset, Distribution: *dist})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("splitter: commit: %w", err)
	}

	for _, d := range receipt.Distributions {
		log.Info("royalty paid",
			zap.Stringer("asset", d.Asset),
			zap.String("balance", d.Balance.Dec()),
			zap.String("total", d.Total.Dec()),
			zap.String("dust", d.Dust.Dec()),
			zap.Int("receivers", len(d.Payouts)))
	}
	return receipt, nil
}

// Deposit moves native value from an account to the holding account. It
// never touches the registry and succeeds whenever from can pay.
func (s *Splitter) Deposit(ctx context.Context, from revshare.Address, amount *uint256.Int) error {
	return s.deposit(ctx, ledger.Native, from, amount)
}

// DepositToken moves tokens from an account to the holding account.
func (s *Splitter) DepositToken(ctx context.Context, token revshare.TokenID, from revshare.Address, amount *uint256.Int) error {
	if token.IsZero() {
		return fmt.Errorf("%w: zero token id", ledger.ErrInvalidAsset)
	}
	return s.deposit(ctx, ledger.Token(token), from, amount)
}

func (s *Splitter) deposit(ctx context.Context, asset ledger.Asset, from revshare.Address, amount *uint256.Int) error {
	ctx, leave, err := s.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.Transfer(ctx, asset, from, s.registry.Holding(), amount); err != nil {
		return fmt.Errorf("splitter: deposit %s: %w", asset, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("splitter: commit: %w", err)
	}
	s.log.Debug("deposit", zap.Stringer("asset", asset), zap.Stringer("from", from))
	return nil
}

// Receivers returns a copy of the current receiver list.
func (s *Splitter) Receivers() []revshare.ReceiverShare { return s.registry.Snapshot() }

// Controller returns the identity allowed to change receivers.
func (s *Splitter) Controller() revshare.Address { return s.registry.Controller() }

// Holding returns the account whose balances are distributed.
func (s *Splitter) Holding() revshare.Address { return s.registry.Holding() }

// Balance returns the committed balance of the holding account.
func (s *Splitter) Balance(ctx context.Context, asset ledger.Asset) (*uint256.Int, error) {
	return s.ledger.Balance(ctx, asset, s.registry.Holding())
}
