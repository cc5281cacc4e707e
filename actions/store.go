package actions

import (
	"sort"
	"sync"

	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
)

// CancelFunc rolls back an activation started by StartActivation.
// It is a no-op once the state has been updated or reset since.
type CancelFunc func()

// Observer receives a snapshot after every state change. Observers run on
// the goroutine that made the change and must not mutate the Store.
type Observer func(State)

// Store is a mutex-guarded state sink for a single connector.
type Store struct {
	name string
	log  *logger.Logger

	mu        sync.Mutex
	state     State
	nullifier uint64
	observers map[uint64]Observer
	nextObs   uint64

	// notifyMu serializes mutations with their observer deliveries so
	// observers see snapshots in mutation order.
	notifyMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for state transitions.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates a Store in the disconnected state.
func NewStore(name string, opts ...Option) *Store {
	s := &Store{
		name:      name,
		log:       logger.NewNop(),
		state:     defaultState(),
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("actions").WithConnector(name)
	return s
}

// Name returns the connector name the store belongs to.
func (s *Store) Name() string { return s.name }

// StartActivation marks the connector as activating and returns a
// function that clears the flag if nothing changed in between.
func (s *Store) StartActivation() CancelFunc {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.nullifier++
	generation := s.nullifier
	s.state.Activating = true
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.notify(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			defer s.notifyMu.Unlock()

			s.mu.Lock()
			if s.nullifier != generation {
				s.mu.Unlock()
				return
			}
			s.state.Activating = false
			snapshot := s.state.clone()
			s.mu.Unlock()

			s.log.Debug("activation cancelled")
			s.notify(snapshot)
		})
	}
}

// Update merges p into the state. Chain ids must be in range and accounts
// must be valid addresses; they are stored in checksum form. Activating is
// cleared once both a chain id and at least one account are present.
func (s *Store) Update(p Partial) error {
	if p.ChainID != 0 {
		if err := chain.ValidateID(p.ChainID); err != nil {
			return errors.InvalidInput("chain_id", err.Error())
		}
	}

	var accounts []string
	if p.Accounts != nil {
		normalized, err := chain.ChecksumAddresses(p.Accounts)
		if err != nil {
			return errors.InvalidInput("accounts", err.Error())
		}
		accounts = normalized
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.nullifier++

	next := s.state
	if p.ChainID != 0 {
		next.ChainID = p.ChainID
	}
	if accounts != nil {
		next.Accounts = accounts
	}
	if next.ChainID != 0 && len(next.Accounts) > 0 {
		next.Activating = false
	}
	s.state = next
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.log.Debug("state updated", logger.Fields(
		logger.FieldChainID, snapshot.ChainID,
		logger.FieldAccounts, len(snapshot.Accounts),
	))
	s.notify(snapshot)
	return nil
}

// ResetState returns the store to the disconnected state.
func (s *Store) ResetState() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.nullifier++
	s.state = defaultState()
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.log.Debug("state reset")
	s.notify(snapshot)
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// ChainID returns the current chain id, zero when undefined.
func (s *Store) ChainID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ChainID
}

// Accounts returns a copy of the bound accounts.
func (s *Store) Accounts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.state.Accounts...)
}

// Account returns the primary account.
func (s *Store) Account() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Account()
}

// IsActive reports whether an account is bound.
func (s *Store) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsActive()
}

// IsActivating reports whether an activation is in flight.
func (s *Store) IsActivating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Activating
}

// Subscribe registers fn for state snapshots. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// notify must be called with notifyMu held and mu released.
func (s *Store) notify(snapshot State) {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot.clone())
	}
}
