package city

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Repository provides database operations for the city catalog. The name
// list is cached briefly because every navigation resolution reads it.
type Repository struct {
	pool *pgxpool.Pool

	mu        sync.Mutex
	names     []string
	namesFrom time.Time
}

// nameCacheTTL bounds how stale the cached name list may get.
const nameCacheTTL = 30 * time.Second

// NewRepository creates a new city repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create registers a new city
func (r *Repository) Create(ctx context.Context, city *City) error {
	query := `INSERT INTO cities (id, name, active) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, city.ID, city.Name, city.Active)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("city with this name already exists")
		}
		return errors.Wrap(err, "failed to create city")
	}

	r.invalidate()
	return nil
}

// Get retrieves a city by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*City, error) {
	query := `SELECT id, name, active, created_at FROM cities WHERE id = $1`

	city := &City{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&city.ID, &city.Name, &city.Active, &city.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("city", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get city")
	}

	return city, nil
}

// List returns all cities ordered by name
func (r *Repository) List(ctx context.Context) ([]City, error) {
	query := `SELECT id, name, active, created_at FROM cities ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cities")
	}
	defer rows.Close()

	var cities []City
	for rows.Next() {
		var city City
		if err := rows.Scan(&city.ID, &city.Name, &city.Active, &city.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan city")
		}
		cities = append(cities, city)
	}

	return cities, nil
}

// SetActive activates or deactivates a city
func (r *Repository) SetActive(ctx context.Context, id types.ID, active bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE cities SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return errors.Wrap(err, "failed to update city")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("city", id.String())
	}

	r.invalidate()
	return nil
}

// CityNames returns the active city names used to normalize scope
// selections.
func (r *Repository) CityNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	if r.names != nil && time.Since(r.namesFrom) < nameCacheTTL {
		names := r.names
		r.mu.Unlock()
		return names, nil
	}
	r.mu.Unlock()

	rows, err := r.pool.Query(ctx, `SELECT name FROM cities WHERE active ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list city names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan city name")
		}
		names = append(names, name)
	}

	r.mu.Lock()
	r.names = names
	r.namesFrom = time.Now()
	r.mu.Unlock()

	return names, nil
}

func (r *Repository) invalidate() {
	r.mu.Lock()
	r.names = nil
	r.mu.Unlock()
}
