package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitfsorg/revsplit-go/internal/cbor"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/holiman/uint256"
	"go.etcd.io/bbolt"
)

var (
	bucketBalances = []byte("balances")
	bucketLogs     = []byte("logs")
	bucketMeta     = []byte("meta")

	keySchema = []byte("schema")
)

const schemaVersion uint32 = 1

// logRecord is the stored form of a Log; the sequence is the bucket key.
type logRecord struct {
	_     struct{} `cbor:",toarray"`
	Topic []byte
	Name  string
	Data  []byte
}

// BoltLedger is a Ledger persisted in bbolt. Each ledger Tx is one bbolt
// read-write transaction, so a rollback is bbolt's own.
type BoltLedger struct {
	hooks

	db     *bbolt.DB
	ownsDB bool
}

var _ Ledger = (*BoltLedger)(nil)

// OpenBoltLedger opens (or creates) a ledger database at path.
func OpenBoltLedger(path string) (*BoltLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create data dir: %w", err)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	l, err := NewBoltLedger(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	l.ownsDB = true
	return l, nil
}

// NewBoltLedger uses an already open database. The caller keeps ownership
// of db; Close is then a no-op.
func NewBoltLedger(db *bbolt.DB) (*BoltLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: nil bolt db")
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBalances, bucketLogs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keySchema); v != nil {
			if len(v) != 4 || binary.BigEndian.Uint32(v) != schemaVersion {
				return fmt.Errorf("unsupported schema %x", v)
			}
			return nil
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], schemaVersion)
		return meta.Put(keySchema, buf[:])
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: init: %w", err)
	}
	return &BoltLedger{db: db}, nil
}

// DB exposes the underlying database so other stores can share the file.
func (l *BoltLedger) DB() *bbolt.DB { return l.db }

// Begin opens a bbolt read-write transaction.
func (l *BoltLedger) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	btx, err := l.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("ledger: begin: %w", err)
	}
	return &boltTx{l: l, tx: btx}, nil
}

func (l *BoltLedger) Balance(ctx context.Context, asset Asset, account revshare.Address) (*uint256.Int, error) {
	if err := asset.validate(); err != nil {
		return nil, err
	}
	var bal *uint256.Int
	err := l.db.View(func(tx *bbolt.Tx) error {
		bal = readBalance(tx, asset, account)
		return nil
	})
	return bal, err
}

func (l *BoltLedger) Logs(ctx context.Context, fromSeq uint64) ([]Log, error) {
	var out []Log
	err := l.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketLogs).Cursor()
		for k, v := c.Seek(seqKey(fromSeq)); k != nil; k, v = c.Next() {
			lg, err := decodeLog(k, v)
			if err != nil {
				return err
			}
			out = append(out, lg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *BoltLedger) Close() error {
	if !l.ownsDB {
		return nil
	}
	return l.db.Close()
}

func readBalance(tx *bbolt.Tx, asset Asset, account revshare.Address) *uint256.Int {
	v := tx.Bucket(bucketBalances).Get(balanceKey(asset, account))
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).SetBytes(v)
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

func decodeLog(k, v []byte) (Log, error) {
	if len(k) != 8 {
		return Log{}, fmt.Errorf("%w: key length %d", ErrInvalidLogData, len(k))
	}
	var rec logRecord
	if err := cbor.Decode(v, &rec); err != nil {
		return Log{}, fmt.Errorf("%w: %w", ErrInvalidLogData, err)
	}
	if len(rec.Topic) != 32 {
		return Log{}, fmt.Errorf("%w: topic length %d", ErrInvalidLogData, len(rec.Topic))
	}
	lg := Log{
		Seq:  binary.BigEndian.Uint64(k),
		Name: rec.Name,
		// v is only valid inside the bbolt transaction.
		Data: append([]byte(nil), rec.Data...),
	}
	copy(lg.Topic[:], rec.Topic)
	return lg, nil
}

type boltTx struct {
	l      *BoltLedger
	tx     *bbolt.Tx
	done   bool
	failed bool
}

func (t *boltTx) get(asset Asset, account revshare.Address) (*uint256.Int, error) {
	return readBalance(t.tx, asset, account), nil
}

func (t *boltTx) put(asset Asset, account revshare.Address, v *uint256.Int) error {
	key := balanceKey(asset, account)
	b := t.tx.Bucket(bucketBalances)
	if v.IsZero() {
		return b.Delete(key)
	}
	val := v.Bytes32()
	if err := b.Put(key, val[:]); err != nil {
		return fmt.Errorf("ledger: put balance: %w", err)
	}
	return nil
}

func (t *boltTx) Balance(asset Asset, account revshare.Address) (*uint256.Int, error) {
	if t.done {
		return nil, ErrTxClosed
	}
	if err := asset.validate(); err != nil {
		return nil, err
	}
	return t.get(asset, account)
}

func (t *boltTx) Transfer(ctx context.Context, asset Asset, from, to revshare.Address, amount *uint256.Int) error {
	if t.done {
		return ErrTxClosed
	}
	if err := transfer(ctx, t, &t.l.hooks, asset, from, to, amount); err != nil {
		t.failed = true
		return err
	}
	return nil
}

func (t *boltTx) Credit(asset Asset, to revshare.Address, amount *uint256.Int) error {
	if t.done {
		return ErrTxClosed
	}
	if err := credit(t, asset, to, amount); err != nil {
		t.failed = true
		return err
	}
	return nil
}

func (t *boltTx) Emit(log Log) error {
	if t.done {
		return ErrTxClosed
	}
	b := t.tx.Bucket(bucketLogs)
	// NextSequence is part of the bbolt transaction and rolls back with it.
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("ledger: next log sequence: %w", err)
	}
	data, err := cbor.Encode(logRecord{Topic: log.Topic[:], Name: log.Name, Data: log.Data})
	if err != nil {
		return fmt.Errorf("ledger: encode log: %w", err)
	}
	return b.Put(seqKey(seq), data)
}

func (t *boltTx) Commit() error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	if t.failed {
		_ = t.tx.Rollback()
		return ErrTxFailed
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

func (t *boltTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
