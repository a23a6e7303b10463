package identity

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/auth"
	"github.com/eglise-connect/platform/internal/shared/config"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/events"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the identity module
type Handler struct {
	repo     *Repository
	authCfg  config.AuthConfig
	sessions *scope.Store
	bus      *events.Bus
}

// NewHandler creates a new identity handler
func NewHandler(repo *Repository, authCfg config.AuthConfig, sessions *scope.Store, bus *events.Bus) *Handler {
	return &Handler{repo: repo, authCfg: authCfg, sessions: sessions, bus: bus}
}

// PublicRoutes returns the routes that do not require authentication
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

// Routes returns the authenticated identity routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.Me)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)

		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Put("/", h.UpdateUser)
			r.Delete("/", h.DeleteUser)
			r.Put("/permissions", h.ReplacePermissions)
		})
	})

	return r
}

// Login authenticates credentials and issues a token. A blocked account
// is rejected and the attempt is recorded.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, errors.BadRequest("username and password are required"))
		return
	}

	user, err := h.repo.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		// Do not reveal whether the username exists.
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, errors.Unauthorized("invalid credentials"))
		return
	}

	if user.IsBlocked {
		h.publish(r, user.ID, user.City, "identity.login_blocked", map[string]any{
			"username": user.Username,
		})
		writeError(w, errors.Forbidden("account is blocked"))
		return
	}

	token, err := auth.NewToken(h.authCfg, auth.User{
		ID:       user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		City:     user.City,
	})
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to issue token"))
		return
	}

	identity := user.Identity()
	if h.sessions != nil {
		h.sessions.Attach(identity)
	}

	h.publish(r, user.ID, user.City, "identity.login", map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Identity: identity})
}

// Me returns the caller's identity record
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller := auth.GetUser(r.Context())
	if caller == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	user, err := h.repo.GetUser(r.Context(), caller.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Identity())
}

// ListUsers lists users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}

	filter := parseListUsersFilter(r)

	users, total, err := h.repo.ListUsers(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  users,
		"total": total,
	})
}

// parseListUsersFilter reads the listing filters from the query string.
// Malformed values are ignored rather than rejected.
func parseListUsersFilter(r *http.Request) ListUsersFilter {
	filter := ListUsersFilter{
		Search: r.URL.Query().Get("search"),
	}

	if role := r.URL.Query().Get("role"); role != "" {
		filter.Role = &role
	}
	if city := r.URL.Query().Get("city"); city != "" {
		filter.City = &city
	}
	if blocked := r.URL.Query().Get("blocked"); blocked != "" {
		if b, err := strconv.ParseBool(blocked); err == nil {
			filter.Blocked = &b
		}
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			filter.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			filter.Offset = o
		}
	}

	return filter
}

// GetUser gets a user by ID
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	user, getErr := h.repo.GetUser(r.Context(), id)
	if getErr != nil {
		writeError(w, getErr)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// CreateUser creates a new user account
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"username": "username is required",
			"password": "password is required",
		}))
		return
	}

	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeError(w, errors.BadRequest(err.Error()))
		return
	}

	// Cross-tenant roles are the only ones without a home city.
	if req.City == "" && !access.CrossTenant(role) {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"city": "city is required for this role",
		}))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to hash password"))
		return
	}

	user := &User{
		ID:                types.NewID(),
		Username:          req.Username,
		PasswordHash:      string(hash),
		Role:              role,
		City:              req.City,
		AssignedMonth:     req.AssignedMonth,
		AssignedFIID:      req.AssignedFIID,
		AssignedSecteurID: req.AssignedSecteurID,
	}

	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	caller := auth.GetUser(r.Context())
	h.publish(r, caller.ID, caller.City, "identity.user_created", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"city":     user.City,
	})

	writeJSON(w, http.StatusCreated, user)
}

// UpdateUser updates a user account
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	user, getErr := h.repo.GetUser(r.Context(), id)
	if getErr != nil {
		writeError(w, getErr)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Password != nil {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			writeError(w, errors.Wrap(hashErr, "failed to hash password"))
			return
		}
		user.PasswordHash = string(hash)
	}
	if req.Role != nil {
		role, parseErr := access.ParseRole(*req.Role)
		if parseErr != nil {
			writeError(w, errors.BadRequest(parseErr.Error()))
			return
		}
		user.Role = role
	}
	if req.City != nil {
		user.City = *req.City
	}
	if req.AssignedMonth != nil {
		user.AssignedMonth = req.AssignedMonth
	}
	if req.AssignedFIID != nil {
		user.AssignedFIID = req.AssignedFIID
	}
	if req.AssignedSecteurID != nil {
		user.AssignedSecteurID = req.AssignedSecteurID
	}
	if req.IsBlocked != nil {
		user.IsBlocked = *req.IsBlocked
	}

	if err := h.repo.UpdateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	if h.sessions != nil {
		if user.IsBlocked {
			h.sessions.Drop(user.ID)
		} else if s := h.sessions.Get(user.ID); s != nil {
			s.UpdateIdentity(user.Identity())
		}
	}

	if req.IsBlocked != nil && *req.IsBlocked {
		caller := auth.GetUser(r.Context())
		h.publish(r, caller.ID, caller.City, "identity.user_blocked", map[string]any{
			"user_id":  user.ID,
			"username": user.Username,
		})
	}

	writeJSON(w, http.StatusOK, user)
}

// DeleteUser deletes a user account
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	if err := h.repo.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if h.sessions != nil {
		h.sessions.Drop(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplacePermissions overwrites a user's dashboard permission overrides.
// The stored map is replaced wholesale with the request payload; this
// endpoint never merges.
func (h *Handler) ReplacePermissions(w http.ResponseWriter, r *http.Request) {
	if err := h.requireAdmin(r); err != nil {
		writeError(w, err)
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	var req ReplacePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := h.repo.ReplacePermissions(r.Context(), id, req.Permissions); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordPermissionWrite()

	// Make the new overrides visible to an active session without re-login.
	user, getErr := h.repo.GetUser(r.Context(), id)
	if getErr == nil && h.sessions != nil {
		if s := h.sessions.Get(id); s != nil {
			s.UpdateIdentity(user.Identity())
		}
	}

	caller := auth.GetUser(r.Context())
	h.publish(r, caller.ID, caller.City, "identity.permissions_replaced", map[string]any{
		"user_id":     id,
		"permissions": req.Permissions,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     id,
		"permissions": req.Permissions,
	})
}

// requireAdmin rejects callers without an administrative role
func (h *Handler) requireAdmin(r *http.Request) error {
	caller := auth.GetUser(r.Context())
	if caller == nil {
		return errors.Unauthorized("authentication required")
	}
	if !caller.IsAdmin() {
		return errors.Forbidden("administrative role required")
	}
	return nil
}

func (h *Handler) publish(r *http.Request, actorID types.ID, actorCity, eventType string, data map[string]any) {
	if h.bus == nil {
		return
	}
	event := events.NewEvent(eventType, "identity", data).
		WithActor(actorID, "user", actorCity)
	h.bus.Publish(r.Context(), event)
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
