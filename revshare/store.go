package revshare

import "sync"

// Store persists the registry state of one holding account.
type Store interface {
	// Load returns the stored state, or ErrRegistryNotFound.
	Load() (*RegistryState, error)

	// Save replaces the stored state atomically.
	Save(state *RegistryState) error
}

// MemStore is an in-memory Store for tests and ephemeral splitters.
type MemStore struct {
	mu   sync.Mutex
	data []byte

	// SaveErr, when set, is returned by Save without touching the stored state.
	SaveErr error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

var _ Store = (*MemStore)(nil)

// Load decodes the last saved state.
func (s *MemStore) Load() (*RegistryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrRegistryNotFound
	}
	return DeserializeRegistry(s.data)
}

// Save stores the encoded state, going through the same codec as BoltStore.
func (s *MemStore) Save(state *RegistryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	data, err := SerializeRegistry(state)
	if err != nil {
		return err
	}
	s.data = data
	return nil
}
