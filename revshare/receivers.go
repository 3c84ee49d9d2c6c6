package revshare

import (
	"errors"
	"fmt"
	"sync"
)

// Registry holds the receiver configuration of one holding account.
//
// Only the controller may replace the entries. Replacement is wholesale: the
// new list is persisted first and swapped in only after the store accepted it.
type Registry struct {
	mu    sync.RWMutex
	store Store
	state *RegistryState
}

// NewRegistry loads the registry for holding from store, or creates an empty
// one owned by controller when nothing has been stored yet. A stored registry
// keeps its own controller; controller is only used on first creation.
func NewRegistry(store Store, holding, controller Address) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("revshare: nil store")
	}
	if holding.IsZero() {
		return nil, fmt.Errorf("%w: zero holding account", ErrInvalidAddress)
	}

	state, err := store.Load()
	switch {
	case err == nil:
		if state.Holding != holding {
			return nil, fmt.Errorf("%w: stored %s, requested %s", ErrHoldingMismatch, state.Holding, holding)
		}
	case errors.Is(err, ErrRegistryNotFound):
		if controller.IsZero() {
			return nil, fmt.Errorf("%w: zero controller", ErrInvalidAddress)
		}
		state = &RegistryState{Holding: holding, Controller: controller}
		if err := store.Save(state); err != nil {
			return nil, fmt.Errorf("revshare: save initial registry: %w", err)
		}
	default:
		return nil, fmt.Errorf("revshare: load registry: %w", err)
	}

	return &Registry{store: store, state: state}, nil
}

// UpdateReceivers replaces the receiver list. An empty list is accepted and
// disables distribution until the next replacement. Duplicate receivers are
// kept as separate slots.
func (r *Registry) UpdateReceivers(caller Address, entries []ReceiverShare) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.state.Controller {
		return Revert(ErrUnauthorized, ReasonNotOwner)
	}
	if err := ValidateShares(entries); err != nil {
		return err
	}

	next := r.state.Clone()
	next.Entries = cloneEntries(entries)
	next.Version++
	if err := r.store.Save(next); err != nil {
		return fmt.Errorf("revshare: save registry: %w", err)
	}
	r.state = next
	return nil
}

// TransferControl hands the controller capability to next.
func (r *Registry) TransferControl(caller, next Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.state.Controller {
		return Revert(ErrUnauthorized, ReasonNotOwner)
	}
	if next.IsZero() {
		return Revert(ErrInvalidAddress, ReasonZeroOwner)
	}

	state := r.state.Clone()
	state.Controller = next
	state.Version++
	if err := r.store.Save(state); err != nil {
		return fmt.Errorf("revshare: save registry: %w", err)
	}
	r.state = state
	return nil
}

// Snapshot returns a private copy of the current entries.
func (r *Registry) Snapshot() []ReceiverShare {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneEntries(r.state.Entries)
}

// State returns a copy of the full registry state.
func (r *Registry) State() *RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

// Controller returns the current holder of the receivers capability.
func (r *Registry) Controller() Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Controller
}

// Holding returns the account the registry belongs to.
func (r *Registry) Holding() Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Holding
}
