// Package settlement pays committed native distributions on chain from the
// holding address and remembers which distributions have been paid, so a
// distribution is never settled by two different transactions.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfsorg/revsplit-go/network"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/bitfsorg/revsplit-go/splitter"
	"github.com/bitfsorg/revsplit-go/tx"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often Wait asks the node for confirmations.
const DefaultPollInterval = 10 * time.Second

// Record is the on-chain counterpart of one native distribution.
type Record struct {
	ID            uuid.UUID
	TxID          string // display order
	RawHex        string
	Fee           uint64
	Outputs       []tx.PayoutOutput
	Broadcast     bool
	Confirmations int64
	BlockHeight   uint64
}

// Params groups the dependencies of a Settler.
type Params struct {
	Service network.SettlementService
	Store   Store
	Key     *ec.PrivateKey // holding key; only Settle needs it
	Holding revshare.Address
	Mainnet bool
	FeeRate uint64 // sat/KB, 0 means tx.DefaultFeeRate
	Logger  *zap.Logger
}

// Settler builds, broadcasts and tracks settlement transactions.
type Settler struct {
	svc     network.SettlementService
	store   Store
	key     *ec.PrivateKey
	holding revshare.Address
	mainnet bool
	feeRate uint64
	log     *zap.Logger
}

// New creates a Settler.
func New(p Params) (*Settler, error) {
	if p.Service == nil {
		return nil, fmt.Errorf("settlement: nil service")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("settlement: nil store")
	}
	if p.Holding.IsZero() {
		return nil, fmt.Errorf("%w: holding", revshare.ErrInvalidAddress)
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Settler{
		svc:     p.Service,
		store:   p.Store,
		key:     p.Key,
		holding: p.Holding,
		mainnet: p.Mainnet,
		feeRate: p.FeeRate,
		log:     log.With(zap.Stringer("holding", p.Holding)),
	}, nil
}

// Settle pays the receivers of ev from the holding address' UTXOs, one output
// per non-zero payout. With broadcast false the signed transaction is only
// returned.
//
// A distribution already broadcast fails with ErrAlreadySettled. One that was
// recorded but never acknowledged by a node is rebroadcast as the same
// transaction rather than rebuilt.
func (s *Settler) Settle(ctx context.Context, ev *splitter.PaidEvent, broadcast bool) (*Record, error) {
	if ev == nil || !ev.Asset.IsNative() {
		return nil, ErrNotNative
	}
	log := s.log.With(zap.Stringer("distribution", ev.ID))

	rec, err := s.store.Get(ev.ID)
	switch {
	case err == nil && rec.Broadcast:
		return rec, fmt.Errorf("%w: %s in %s", ErrAlreadySettled, ev.ID, rec.TxID)
	case err == nil:
		if !broadcast {
			return rec, nil
		}
		log.Info("rebroadcasting recorded settlement", zap.String("txid", rec.TxID))
		return s.broadcast(ctx, rec, log)
	case !errors.Is(err, ErrRecordNotFound):
		return nil, err
	}

	if s.key == nil {
		return nil, fmt.Errorf("settlement: no holding key")
	}
	addr, err := s.holding.P2PKH(s.mainnet)
	if err != nil {
		return nil, err
	}
	if err := s.svc.ImportAddress(ctx, addr); err != nil {
		return nil, fmt.Errorf("import %s: %w", addr, err)
	}
	unspent, err := s.svc.ListUnspent(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("list unspent for %s: %w", addr, err)
	}

	// A settlement made from another data directory leaves its change here.
	prior, err := s.findOnChain(ctx, ev.ID, unspent)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if err := s.store.Put(prior); err != nil {
			return nil, err
		}
		log.Warn("distribution already settled on chain", zap.String("txid", prior.TxID))
		return prior, fmt.Errorf("%w: %s in %s", ErrAlreadySettled, ev.ID, prior.TxID)
	}

	if len(unspent) == 0 {
		return nil, fmt.Errorf("%w: no UTXOs at %s", tx.ErrInsufficientFunds, addr)
	}
	inputs := make([]*tx.UTXO, 0, len(unspent))
	for _, u := range unspent {
		in, err := u.ToTx(s.key)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}

	if len(ev.Receivers) != len(ev.Amounts) {
		return nil, fmt.Errorf("%w: %d receivers, %d amounts", splitter.ErrInvalidEvent, len(ev.Receivers), len(ev.Amounts))
	}
	payouts := make([]revshare.Payout, len(ev.Receivers))
	for i, r := range ev.Receivers {
		payouts[i] = revshare.Payout{Receiver: r, Amount: ev.Amounts[i]}
	}

	ptx, err := tx.BuildPayoutTx(&tx.PayoutParams{
		Inputs:         inputs,
		Payouts:        payouts,
		ChangeAddr:     s.holding,
		FeeRate:        s.feeRate,
		DistributionID: ev.ID,
	})
	if err != nil {
		return nil, err
	}
	rawHex, err := tx.SignPayoutTx(ptx, inputs)
	if err != nil {
		return nil, err
	}
	hash, err := chainhash.NewHash(ptx.TxID)
	if err != nil {
		return nil, err
	}

	rec = &Record{ID: ev.ID, TxID: hash.String(), RawHex: rawHex, Fee: ptx.Fee, Outputs: ptx.Outputs}
	if !broadcast {
		return rec, nil
	}
	// Recorded before broadcasting: a retry after a lost reply resends this
	// transaction instead of building a second one.
	if err := s.store.Put(rec); err != nil {
		return nil, err
	}
	return s.broadcast(ctx, rec, log)
}

func (s *Settler) broadcast(ctx context.Context, rec *Record, log *zap.Logger) (*Record, error) {
	txid, err := s.svc.BroadcastTx(ctx, rec.RawHex)
	if errors.Is(err, network.ErrTxKnown) {
		log.Info("settlement already known to node", zap.String("txid", rec.TxID))
		return s.markBroadcast(rec, log)
	}
	if err != nil {
		// The node may already hold it from an earlier attempt.
		if _, serr := s.svc.GetTxStatus(ctx, rec.TxID); serr == nil {
			log.Info("settlement already known to node", zap.String("txid", rec.TxID))
			return s.markBroadcast(rec, log)
		}
		if errors.Is(err, network.ErrBroadcastRejected) {
			if derr := s.store.Delete(rec.ID); derr != nil {
				log.Warn("could not drop rejected settlement", zap.Error(derr))
			}
		}
		return nil, err
	}
	if txid != rec.TxID {
		log.Warn("node reported a different txid", zap.String("built", rec.TxID), zap.String("node", txid))
		rec.TxID = txid
	}
	return s.markBroadcast(rec, log)
}

func (s *Settler) markBroadcast(rec *Record, log *zap.Logger) (*Record, error) {
	rec.Broadcast = true
	if err := s.store.Put(rec); err != nil {
		return nil, err
	}
	log.Info("settled distribution",
		zap.String("txid", rec.TxID), zap.Int("outputs", len(rec.Outputs)), zap.Uint64("fee", rec.Fee))
	return rec, nil
}

// findOnChain looks for a payout record of id among the transactions that
// funded the holding address' UTXOs.
func (s *Settler) findOnChain(ctx context.Context, id uuid.UUID, unspent []*network.UTXO) (*Record, error) {
	seen := make(map[string]bool)
	for _, u := range unspent {
		if seen[u.TxID] {
			continue
		}
		seen[u.TxID] = true

		rawHex, err := s.svc.GetRawTx(ctx, u.TxID)
		if errors.Is(err, network.ErrTxNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", u.TxID, err)
		}
		if got, err := tx.PayoutRecordFromTx(rawHex); err == nil && got == id {
			return &Record{ID: id, TxID: u.TxID, RawHex: rawHex, Broadcast: true}, nil
		}
	}
	return nil, nil
}

// Wait polls the node until the settlement of id is mined, then records its
// confirmation count and height.
func (s *Settler) Wait(ctx context.Context, id uuid.UUID, poll time.Duration) (*Record, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !rec.Broadcast {
		return nil, fmt.Errorf("%w: %s", ErrNotBroadcast, id)
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		st, err := s.svc.GetTxStatus(ctx, rec.TxID)
		switch {
		case err == nil && st.Confirmed:
			rec.Confirmations, rec.BlockHeight = st.Confirmations, st.BlockHeight
			if err := s.store.Put(rec); err != nil {
				return nil, err
			}
			s.log.Info("settlement confirmed",
				zap.Stringer("distribution", id), zap.String("txid", rec.TxID), zap.Uint64("height", st.BlockHeight))
			return rec, nil
		case err != nil && !errors.Is(err, network.ErrTxNotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Records returns every recorded settlement.
func (s *Settler) Records() ([]*Record, error) {
	return s.store.List()
}
