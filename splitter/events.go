package splitter

import (
	"context"
	"fmt"

	"github.com/bitfsorg/revsplit-go/internal/cbor"
	"github.com/bitfsorg/revsplit-go/ledger"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// Event names and signatures.
const (
	EventRoyaltyPaid      = "RoyaltyPaid"
	EventRoyaltyPaidERC20 = "RoyaltyPaidERC20"

	sigRoyaltyPaid      = "RoyaltyPaid(uint256,address[],uint256[])"
	sigRoyaltyPaidERC20 = "RoyaltyPaidERC20(address,uint256,address[],uint256[])"
)

// Topic ids: Keccak-256 of the event signature.
var (
	TopicRoyaltyPaid      = topic(sigRoyaltyPaid)
	TopicRoyaltyPaidERC20 = topic(sigRoyaltyPaidERC20)
)

func topic(sig string) [32]byte {
	var out [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	copy(out[:], h.Sum(nil))
	return out
}

// PaidEvent is a decoded royalty event.
type PaidEvent struct {
	Seq       uint64
	Name      string
	ID        uuid.UUID
	Asset     ledger.Asset
	Total     *uint256.Int
	Receivers []revshare.Address
	Amounts   []*uint256.Int
	Dust      *uint256.Int
}

// paidRecord is the CBOR payload. Amounts are minimal big-endian bytes.
type paidRecord struct {
	_         struct{} `cbor:",toarray"`
	ID        []byte
	Token     []byte
	Total     []byte
	Receivers [][]byte
	Amounts   [][]byte
	Dust      []byte
}

func encodePaid(id uuid.UUID, asset ledger.Asset, dist *revshare.Distribution) (ledger.Log, error) {
	rec := paidRecord{
		ID:        id[:],
		Total:     dist.Total.Bytes(),
		Receivers: make([][]byte, len(dist.Payouts)),
		Amounts:   make([][]byte, len(dist.Payouts)),
		Dust:      dist.Dust.Bytes(),
	}
	for i, p := range dist.Payouts {
		r := p.Receiver
		rec.Receivers[i] = r[:]
		rec.Amounts[i] = p.Amount.Bytes()
	}

	lg := ledger.Log{Topic: TopicRoyaltyPaid, Name: EventRoyaltyPaid}
	if !asset.IsNative() {
		rec.Token = asset.Token[:]
		lg.Topic, lg.Name = TopicRoyaltyPaidERC20, EventRoyaltyPaidERC20
	}

	data, err := cbor.Encode(rec)
	if err != nil {
		return ledger.Log{}, fmt.Errorf("splitter: encode %s: %w", lg.Name, err)
	}
	lg.Data = data
	return lg, nil
}

// DecodeRoyaltyPaid decodes a native distribution event.
func DecodeRoyaltyPaid(lg ledger.Log) (*PaidEvent, error) {
	if lg.Topic != TopicRoyaltyPaid {
		return nil, fmt.Errorf("%w: topic %x is not %s", ErrInvalidEvent, lg.Topic, EventRoyaltyPaid)
	}
	ev, err := decodePaid(lg)
	if err != nil {
		return nil, err
	}
	if !ev.Asset.IsNative() {
		return nil, fmt.Errorf("%w: %s carries a token", ErrInvalidEvent, EventRoyaltyPaid)
	}
	return ev, nil
}

// DecodeRoyaltyPaidERC20 decodes a token distribution event.
func DecodeRoyaltyPaidERC20(lg ledger.Log) (*PaidEvent, error) {
	if lg.Topic != TopicRoyaltyPaidERC20 {
		return nil, fmt.Errorf("%w: topic %x is not %s", ErrInvalidEvent, lg.Topic, EventRoyaltyPaidERC20)
	}
	ev, err := decodePaid(lg)
	if err != nil {
		return nil, err
	}
	if ev.Asset.IsNative() {
		return nil, fmt.Errorf("%w: %s without token", ErrInvalidEvent, EventRoyaltyPaidERC20)
	}
	return ev, nil
}

func decodePaid(lg ledger.Log) (*PaidEvent, error) {
	var rec paidRecord
	if err := cbor.Decode(lg.Data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	id, err := uuid.FromBytes(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrInvalidEvent, err)
	}
	if len(rec.Receivers) != len(rec.Amounts) {
		return nil, fmt.Errorf("%w: %d receivers, %d amounts", ErrInvalidEvent, len(rec.Receivers), len(rec.Amounts))
	}

	ev := &PaidEvent{
		Seq:       lg.Seq,
		Name:      lg.Name,
		ID:        id,
		Asset:     ledger.Native,
		Receivers: make([]revshare.Address, len(rec.Receivers)),
		Amounts:   make([]*uint256.Int, len(rec.Amounts)),
	}
	if len(rec.Token) > 0 {
		if len(rec.Token) != revshare.AddressSize {
			return nil, fmt.Errorf("%w: token is %d bytes", ErrInvalidEvent, len(rec.Token))
		}
		var tok revshare.TokenID
		copy(tok[:], rec.Token)
		ev.Asset = ledger.Token(tok)
	}
	if ev.Total, err = amountFromBytes(rec.Total); err != nil {
		return nil, err
	}
	if ev.Dust, err = amountFromBytes(rec.Dust); err != nil {
		return nil, err
	}
	for i := range rec.Receivers {
		if len(rec.Receivers[i]) != revshare.AddressSize {
			return nil, fmt.Errorf("%w: receiver %d is %d bytes", ErrInvalidEvent, i, len(rec.Receivers[i]))
		}
		copy(ev.Receivers[i][:], rec.Receivers[i])
		if ev.Amounts[i], err = amountFromBytes(rec.Amounts[i]); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

func amountFromBytes(b []byte) (*uint256.Int, error) {
	if len(b) > 32 {
		return nil, fmt.Errorf("%w: amount is %d bytes", ErrInvalidEvent, len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}

// Events returns the royalty events committed at or after fromSeq. Other
// logs in the ledger are skipped.
func (s *Splitter) Events(ctx context.Context, fromSeq uint64) ([]*PaidEvent, error) {
	logs, err := s.ledger.Logs(ctx, fromSeq)
	if err != nil {
		return nil, err
	}
	var out []*PaidEvent
	for _, lg := range logs {
		var ev *PaidEvent
		switch lg.Topic {
		case TopicRoyaltyPaid:
			ev, err = DecodeRoyaltyPaid(lg)
		case TopicRoyaltyPaidERC20:
			ev, err = DecodeRoyaltyPaidERC20(lg)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", lg.Seq, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
