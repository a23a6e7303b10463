// Package city manages the tenant catalog. Every scoped read resolves
// against this list; a selection outside it collapses to "all".
package city

import (
	"time"

	"github.com/eglise-connect/platform/internal/shared/types"
)

// City is one tenant of the platform
type City struct {
	ID        types.ID  `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCityRequest is the payload for registering a city
type CreateCityRequest struct {
	Name string `json:"name"`
}
