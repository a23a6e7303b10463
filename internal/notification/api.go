package notification

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Handler provides HTTP handlers for notifications
type Handler struct {
	service  *Service
	repo     *Repository
	resolver *scope.Resolver
}

// NewHandler creates a new notification handler
func NewHandler(service *Service, repo *Repository, resolver *scope.Resolver) *Handler {
	return &Handler{service: service, repo: repo, resolver: resolver}
}

// Routes returns the notification routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/send", h.Send)
	r.Get("/inbox", h.Inbox)
	r.Post("/inbox/{notificationID}/read", h.MarkRead)
	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.SavePreferences)

	return r
}

// Send queues a notification. Gated by the sending capability.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	allowed := access.EffectivePermission(identity, access.CapSendNotifications)
	metrics.RecordCapabilityDecision(string(access.CapSendNotifications), allowed)
	if !allowed {
		writeError(w, errors.Forbidden("sending notifications is not permitted for this account"))
		return
	}

	var req SendRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.RecipientID.IsZero() || req.Channel == "" || req.Subject == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"recipient_id": "recipient_id is required",
			"channel":      "channel is required",
			"subject":      "subject is required",
		}))
		return
	}

	n := &Notification{
		Channel:     req.Channel,
		Priority:    req.Priority,
		RecipientID: req.RecipientID,
		City:        identity.City,
		Subject:     req.Subject,
		Body:        req.Body,
		Data:        req.Data,
	}

	if enqueueErr := h.service.Enqueue(r.Context(), n); enqueueErr != nil {
		writeError(w, errors.BadRequest(enqueueErr.Error()))
		return
	}

	writeJSON(w, http.StatusAccepted, n)
}

// Inbox returns the caller's in-app notifications
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": h.service.Inbox(identity.ID),
	})
}

// MarkRead marks one of the caller's in-app notifications as read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, parseErr := types.ParseID(chi.URLParam(r, "notificationID"))
	if parseErr != nil {
		writeError(w, errors.BadRequest("invalid notification ID"))
		return
	}

	if readErr := h.service.MarkRead(identity.ID, id); readErr != nil {
		writeError(w, errors.NotFound("notification", id.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences returns the caller's delivery preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	prefs, getErr := h.repo.GetPreferences(r.Context(), identity.ID)
	if getErr != nil {
		writeError(w, getErr)
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}

// SavePreferences replaces the caller's delivery preferences
func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var prefs Preferences
	if decodeErr := json.NewDecoder(r.Body).Decode(&prefs); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	// Preferences are always the caller's own.
	prefs.UserID = identity.ID

	if saveErr := h.repo.SavePreferences(r.Context(), &prefs); saveErr != nil {
		writeError(w, saveErr)
		return
	}

	writeJSON(w, http.StatusOK, prefs)
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
