package session

import (
	"sync"
	"time"
)

// Store is a concurrent in-memory session map with lazy and periodic
// expiry. Zero value is not usable; use NewStore.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// NewStore constructs an empty Store and starts its periodic sweep
// goroutine (stop it with Store.Close).
func NewStore() *Store {
	s := &Store{
		sessions:  make(map[string]Session),
		stopSweep: make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Create inserts a new session built from handshake.
func (s *Store) Create(h Handshake, transport Transport) Session {
	sess := Session{
		ID:         h.SessionID,
		Transport:  transport,
		Negotiated: h.Negotiated,
		Peer:       h.PeerAddress,
		CreatedAt:  time.Now(),
		ExpiresAt:  h.ExpiresAt,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id, or ok=false if it does not exist or has
// expired. An expired entry found during lookup is deleted eagerly.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	sess, found := s.sessions[id]
	s.mu.RUnlock()
	if !found {
		return Session{}, false
	}
	if time.Now().After(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return Session{}, false
	}
	return sess, true
}

// Delete removes a session id unconditionally.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the current number of stored sessions (including any not
// yet lazily evicted).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// sweepLoop deletes expired sessions every SweepInterval until Close.
func (s *Store) sweepLoop() {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepExpired(time.Now())
		case <-s.stopSweep:
			return
		}
	}
}

func (s *Store) sweepExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

// Close stops the periodic sweep goroutine. Idempotent.
func (s *Store) Close() {
	s.sweepOnce.Do(func() {
		close(s.stopSweep)
	})
}
