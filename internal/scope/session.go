// Package scope holds the session-local view state: selected city and
// department, and the impersonation frame. Nothing here is persisted
// across logins.
package scope

import (
	"sync"
	"time"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/errors"
)

// Session is one user's scope state. Safe for concurrent use; requests
// from several tabs of the same user share the session.
type Session struct {
	mu       sync.Mutex
	identity *access.Identity
	scope    access.ScopeContext

	// Impersonation frame. original is non-nil while impersonating.
	original       *access.Identity
	impersonatedAt time.Time
	ttl            time.Duration

	now func() time.Time
}

// NewSession creates a session for an authenticated identity. ttl bounds
// how long an impersonation frame stays active; zero means no expiry.
func NewSession(identity *access.Identity, ttl time.Duration) *Session {
	return &Session{
		identity: identity,
		scope:    access.ScopeContext{SelectedCity: access.CityAll},
		ttl:      ttl,
		now:      time.Now,
	}
}

// Identity returns the effective identity: the impersonated one while a
// frame is active, the original otherwise.
func (s *Session) Identity() *access.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.identity
}

// Scope returns the current scope context.
func (s *Session) Scope() access.ScopeContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.scope
}

// UpdateIdentity swaps in a freshly loaded identity record, for example
// after a permission write. Ignored while impersonating that identity
// would change the frame semantics, so only the matching slot is updated.
func (s *Session) UpdateIdentity(identity *access.Identity) {
	if identity == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	if s.original != nil && s.original.ID == identity.ID {
		s.original = identity
		return
	}
	if s.identity != nil && s.identity.ID == identity.ID {
		s.identity = identity
	}
}

// SetCity changes the selected city. Silent no-op unless the effective
// identity has cross-tenant scope; a selection outside the catalog
// collapses to "all".
func (s *Session) SetCity(city string, cities []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	if !access.HasCrossTenantScope(s.identity) {
		return
	}
	s.scope.SelectedCity = access.NormalizeCity(city, cities)
}

// SetDepartment changes the selected department. Silent no-op unless the
// effective identity may toggle departments.
func (s *Session) SetDepartment(dept access.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	if !access.HasDepartmentToggle(s.identity) {
		return
	}
	s.scope.SelectedDepartment = dept
}

// BeginImpersonation switches the effective identity to target. Only a
// strictly lower-ranked role may be impersonated; a violation is the one
// scope error that is surfaced to the caller.
func (s *Session) BeginImpersonation(target *access.Identity) error {
	if target == nil {
		return errors.BadRequest("impersonation target is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	if s.identity == nil {
		return errors.Unauthorized("authentication required")
	}
	if !access.CanImpersonate(s.identity.Role, target.Role) {
		return errors.Forbidden("target role is not lower-ranked than yours")
	}

	if s.original == nil {
		s.original = s.identity
	}
	s.identity = target.Clone()
	s.impersonatedAt = s.now()

	// Impersonation never carries the elevated scope selection along.
	s.scope = access.ScopeContext{SelectedCity: access.CityAll}

	return nil
}

// EndImpersonation restores the original identity. No-op when not
// impersonating.
func (s *Session) EndImpersonation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked()
}

// IsImpersonating reports whether an impersonation frame is active.
func (s *Session) IsImpersonating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.original != nil
}

// Original returns the identity behind an active impersonation frame,
// or nil when not impersonating.
func (s *Session) Original() *access.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.original
}

// expireLocked restores the original identity once the impersonation
// frame outlives its ttl. Caller holds s.mu.
func (s *Session) expireLocked() {
	if s.original == nil || s.ttl <= 0 {
		return
	}
	if s.now().Sub(s.impersonatedAt) >= s.ttl {
		s.restoreLocked()
	}
}

func (s *Session) restoreLocked() {
	if s.original == nil {
		return
	}
	s.identity = s.original
	s.original = nil
	s.impersonatedAt = time.Time{}
	s.scope = access.ScopeContext{SelectedCity: access.CityAll}
}
