package revshare

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	bucketRegistry = []byte("registry")
	keyState       = []byte("state")
)

// BoltStore persists the registry in a bbolt database shared with other stores.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// NewBoltStore creates the registry bucket in db if needed.
// The caller owns db and is responsible for closing it.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	if db == nil {
		return nil, fmt.Errorf("revshare: nil bolt db")
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRegistry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("revshare: create bucket %q: %w", bucketRegistry, err)
	}
	return &BoltStore{db: db}, nil
}

// Load reads and decodes the stored registry.
func (s *BoltStore) Load() (*RegistryState, error) {
	var state *RegistryState
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRegistry).Get(keyState)
		if data == nil {
			return ErrRegistryNotFound
		}
		decoded, err := DeserializeRegistry(data)
		if err != nil {
			return err
		}
		state = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save encodes and writes the registry in a single bbolt transaction.
func (s *BoltStore) Save(state *RegistryState) error {
	data, err := SerializeRegistry(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRegistry).Put(keyState, data); err != nil {
			return fmt.Errorf("revshare: put registry: %w", err)
		}
		return nil
	})
}
