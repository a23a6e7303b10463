package scope

import (
	"sync"
	"time"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Store keeps one session per user, created lazily on first request after
// login. Sessions live in memory only; a restart resets every scope
// selection to its default.
type Store struct {
	mu       sync.Mutex
	sessions map[types.ID]*Session
	ttl      time.Duration
}

// NewStore creates a session store. ttl is the impersonation frame expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[types.ID]*Session),
		ttl:      ttl,
	}
}

// Attach returns the session for the identity, creating one when absent.
// An existing session gets the fresh identity record applied so permission
// writes take effect without re-login.
func (st *Store) Attach(identity *access.Identity) *Session {
	if identity == nil {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[identity.ID]; ok {
		s.UpdateIdentity(identity)
		return s
	}

	s := NewSession(identity, st.ttl)
	st.sessions[identity.ID] = s
	return s
}

// Get returns the session for a user ID, or nil.
func (st *Store) Get(userID types.ID) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[userID]
}

// Drop removes a user's session, for example when the account is blocked.
func (st *Store) Drop(userID types.ID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}
