package settlement

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bitfsorg/revsplit-go/internal/cbor"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/bitfsorg/revsplit-go/tx"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// Store remembers the settlement transaction of each distribution.
type Store interface {
	// Get returns the record of a distribution, or ErrRecordNotFound.
	Get(id uuid.UUID) (*Record, error)

	// Put creates or replaces the record of rec.ID.
	Put(rec *Record) error

	// Delete forgets a record. Deleting a missing record is not an error.
	Delete(id uuid.UUID) error

	// List returns every record ordered by distribution id.
	List() ([]*Record, error)
}

// recordData is the CBOR form of a Record.
type recordData struct {
	_             struct{} `cbor:",toarray"`
	ID            []byte
	TxID          string
	RawHex        string
	Fee           uint64
	Outputs       []outputData
	Broadcast     bool
	Confirmations int64
	BlockHeight   uint64
}

type outputData struct {
	_        struct{} `cbor:",toarray"`
	Slot     uint32
	Receiver []byte
	Vout     uint32
	Amount   uint64
}

func encodeRecord(rec *Record) ([]byte, error) {
	if rec == nil || rec.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing distribution id", ErrInvalidRecord)
	}
	d := recordData{
		ID:            rec.ID[:],
		TxID:          rec.TxID,
		RawHex:        rec.RawHex,
		Fee:           rec.Fee,
		Broadcast:     rec.Broadcast,
		Confirmations: rec.Confirmations,
		BlockHeight:   rec.BlockHeight,
	}
	for _, o := range rec.Outputs {
		d.Outputs = append(d.Outputs, outputData{
			Slot: uint32(o.Slot), Receiver: o.Receiver[:], Vout: o.Vout, Amount: o.Amount,
		})
	}
	return cbor.Encode(d)
}

func decodeRecord(data []byte) (*Record, error) {
	var d recordData
	if err := cbor.Decode(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	id, err := uuid.FromBytes(d.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrInvalidRecord, err)
	}
	rec := &Record{
		ID:            id,
		TxID:          d.TxID,
		RawHex:        d.RawHex,
		Fee:           d.Fee,
		Broadcast:     d.Broadcast,
		Confirmations: d.Confirmations,
		BlockHeight:   d.BlockHeight,
	}
	for _, o := range d.Outputs {
		if len(o.Receiver) != revshare.AddressSize {
			return nil, fmt.Errorf("%w: receiver is %d bytes", ErrInvalidRecord, len(o.Receiver))
		}
		out := tx.PayoutOutput{Slot: int(o.Slot), Vout: o.Vout, Amount: o.Amount}
		copy(out.Receiver[:], o.Receiver)
		rec.Outputs = append(rec.Outputs, out)
	}
	return rec, nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.Mutex
	data map[uuid.UUID][]byte
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[uuid.UUID][]byte)}
}

func (s *MemStore) Get(id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return decodeRecord(data)
}

func (s *MemStore) Put(rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = data
	return nil
}

func (s *MemStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemStore) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, 0, len(s.data))
	for _, data := range s.data {
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

var bucketSettlements = []byte("settlements")

// BoltStore keeps records in the "settlements" bucket of a shared bbolt
// database. The caller owns db.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore creates the settlements bucket in db if needed.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	if db == nil {
		return nil, fmt.Errorf("settlement: nil bolt db")
	}
	err := db.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(bucketSettlements)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("settlement: create bucket %q: %w", bucketSettlements, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(id uuid.UUID) (*Record, error) {
	var rec *Record
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketSettlements).Get(id[:])
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		decoded, err := decodeRecord(data)
		if err != nil {
			return err
		}
		rec = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) Put(rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		if err := btx.Bucket(bucketSettlements).Put(rec.ID[:], data); err != nil {
			return fmt.Errorf("settlement: put %s: %w", rec.ID, err)
		}
		return nil
	})
}

func (s *BoltStore) Delete(id uuid.UUID) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketSettlements).Delete(id[:])
	})
}

// List walks the bucket in key order, which is distribution id order.
func (s *BoltStore) List() ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(btx *bbolt.Tx) error {
		return btx.Bucket(bucketSettlements).ForEach(func(_, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
