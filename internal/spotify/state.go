package spotify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultStateTTL = 10 * time.Minute

// StateStore tracks in-flight OAuth authorization states. Each state maps
// back to the user who started the flow, since the provider callback
// carries no bearer token.
type StateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]stateEntry
	done    chan struct{}
	once    sync.Once
}

type stateEntry struct {
	userID    int64
	expiresAt time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	store := &StateStore{
		ttl:     ttl,
		entries: make(map[string]stateEntry),
		done:    make(chan struct{}),
	}
	go store.cleanupLoop()
	return store
}

// Issue creates a fresh single-use state for the user.
func (s *StateStore) Issue(userID int64) string {
	state := uuid.NewString()
	s.mu.Lock()
	s.entries[state] = stateEntry{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return state
}

// Consume resolves a state back to its user and invalidates it. Unknown
// and expired states report false.
func (s *StateStore) Consume(state string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return 0, false
	}
	delete(s.entries, state)
	if time.Now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.userID, true
}

// Close stops the background cleanup goroutine.
func (s *StateStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *StateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *StateStore) removeExpired() {
	now := time.Now()
	s.mu.Lock()
	for state, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, state)
		}
	}
	s.mu.Unlock()
}
