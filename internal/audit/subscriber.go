package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/eglise-connect/platform/internal/shared/events"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Subscriber listens to domain events and appends audit entries
type Subscriber struct {
	repo *Repository
	bus  *events.Bus
}

// NewSubscriber creates a new audit subscriber
func NewSubscriber(repo *Repository, bus *events.Bus) *Subscriber {
	return &Subscriber{repo: repo, bus: bus}
}

// Start subscribes to every audited event family
func (s *Subscriber) Start(ctx context.Context) error {
	patterns := []struct {
		pattern      string
		consumerName string
	}{
		{"identity.*", "audit-identity-subscriber"},
		{"scope.*", "audit-scope-subscriber"},
		{"member.*", "audit-member-subscriber"},
		{"group.*", "audit-group-subscriber"},
		{"export.*", "audit-export-subscriber"},
	}

	for _, p := range patterns {
		if err := s.bus.Subscribe(ctx, p.pattern, p.consumerName, s.handleEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", p.pattern, err)
		}
	}

	return nil
}

// handleEvent converts an incoming event into a chained audit entry
func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := s.eventToEntry(event)
	if entry == nil {
		return nil
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	metrics.RecordAuditEntry()

	return nil
}

// eventToEntry converts a domain event to an audit entry. The resource
// type is the event family ("member" for member.created) and the action
// is the full event type.
func (s *Subscriber) eventToEntry(event events.Event) *Entry {
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 {
		return nil
	}

	resourceType := parts[0]

	var resourceID *types.ID
	var changes map[string]any
	if data, ok := event.Data.(map[string]any); ok {
		changes = data

		// Event payloads name their subject either by family or plainly
		idFields := []string{resourceType + "_id", "id"}
		for _, field := range idFields {
			idVal, ok := data[field]
			if !ok {
				continue
			}
			if idStr, ok := idVal.(string); ok {
				id := types.ID(idStr)
				resourceID = &id
				break
			}
			if id, ok := idVal.(types.ID); ok {
				resourceID = &id
				break
			}
		}
	}

	actorType := ActorTypeUser
	if event.ActorType == "system" {
		actorType = ActorTypeSystem
	}

	entry := NewEntry(
		actorType,
		event.ActorID,
		event.ActorCity,
		event.Type,
		resourceType,
		resourceID,
		changes,
		"", // prev_hash is set by Append under the repository lock
	)

	// Keep the event's own timestamp; Append recomputes the hash anyway
	entry.Timestamp = event.Timestamp.UTC()

	if event.CorrelationID != "" {
		correlationID := types.ID(event.CorrelationID)
		entry.CorrelationID = &correlationID
	}

	return entry
}
