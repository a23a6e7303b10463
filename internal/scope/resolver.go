package scope

import (
	"context"
	"net/http"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/auth"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// IdentityLoader loads the full identity record behind an authenticated
// user. Returns nil without error when the user no longer exists.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, id types.ID) (*access.Identity, error)
}

// CityLister provides the city catalog used to normalize selections.
type CityLister interface {
	CityNames(ctx context.Context) ([]string, error)
}

// Resolver gives the other modules the effective identity and the
// resolved city and department for a request. It hides the session
// store and the lazy identity reload after a restart.
type Resolver struct {
	store      *Store
	identities IdentityLoader
	cities     CityLister
}

// NewResolver creates a resolver over the session store
func NewResolver(store *Store, identities IdentityLoader, cities CityLister) *Resolver {
	return &Resolver{store: store, identities: identities, cities: cities}
}

// Session resolves the caller's scope session, loading the identity
// record on first use after login or a server restart.
func (rs *Resolver) Session(r *http.Request) (*Session, *errors.AppError) {
	user := auth.GetUser(r.Context())
	if user == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	if s := rs.store.Get(user.ID); s != nil {
		return s, nil
	}

	identity, err := rs.identities.LoadIdentity(r.Context(), user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load identity")
	}
	if identity == nil || identity.IsBlocked {
		return nil, errors.Unauthorized("account is not active")
	}

	return rs.store.Attach(identity), nil
}

// Identity returns the caller's effective identity
func (rs *Resolver) Identity(r *http.Request) (*access.Identity, *errors.AppError) {
	session, err := rs.Session(r)
	if err != nil {
		return nil, err
	}
	return session.Identity(), nil
}

// ResolvedCity returns the city the caller's reads are scoped to
func (rs *Resolver) ResolvedCity(r *http.Request) (string, *errors.AppError) {
	session, err := rs.Session(r)
	if err != nil {
		return "", err
	}

	cities, listErr := rs.CityNames(r.Context())
	if listErr != nil {
		return "", listErr
	}

	return access.ResolveCity(session.Identity(), session.Scope(), cities), nil
}

// ResolvedDepartment returns the department the caller is scoped to
func (rs *Resolver) ResolvedDepartment(r *http.Request) (access.Department, *errors.AppError) {
	session, err := rs.Session(r)
	if err != nil {
		return access.DepartmentNone, err
	}
	return access.ResolveDepartment(session.Identity(), session.Scope()), nil
}

// CityNames returns the city catalog, or nil when no lister is wired
func (rs *Resolver) CityNames(ctx context.Context) ([]string, *errors.AppError) {
	if rs.cities == nil {
		return nil, nil
	}
	cities, err := rs.cities.CityNames(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cities")
	}
	return cities, nil
}
