package city

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/eglise-connect/platform/internal/shared/auth"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the city catalog
type Handler struct {
	repo *Repository
}

// NewHandler creates a new city handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes returns the city routes. Mutations are restricted to the
// cross-tenant roles.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListCities)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles("super_admin", "pasteur"))
		r.Post("/", h.CreateCity)
		r.Put("/{cityID}/active", h.SetActive)
	})

	return r
}

// ListCities lists all cities
func (h *Handler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": cities})
}

// CreateCity registers a new city
func (h *Handler) CreateCity(w http.ResponseWriter, r *http.Request) {
	var req CreateCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"name": "name is required",
		}))
		return
	}

	// "all" is the sentinel for the unfiltered view, never a real city.
	if req.Name == "all" {
		writeError(w, errors.BadRequest("'all' is a reserved name"))
		return
	}

	city := &City{
		ID:     types.NewID(),
		Name:   req.Name,
		Active: true,
	}

	if err := h.repo.Create(r.Context(), city); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, city)
}

// SetActive activates or deactivates a city
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "cityID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid city ID"))
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := h.repo.SetActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": req.Active})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
