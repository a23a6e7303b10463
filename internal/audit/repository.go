package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/types"
)

const (
	// EntryStreamName is the stream where all audit entries are stored
	EntryStreamName = "eglise-audit"
	// CheckpointStreamName holds checkpoint events, separate from entries
	CheckpointStreamName = "eglise-audit-checkpoints"
	// EntryEventType is the event type for audit entries
	EntryEventType = "audit.entry"
	// CheckpointEventType is the event type for checkpoints
	CheckpointEventType = "audit.checkpoint"
)

// Repository provides append-only audit log operations over EventStoreDB.
// The store is inherently append-only; entries cannot be modified or
// deleted once written.
type Repository struct {
	client   *esdb.Client
	mu       sync.Mutex
	lastHash string
	sequence int64
}

// NewRepository creates a new audit repository
func NewRepository(client *esdb.Client) *Repository {
	return &Repository{client: client}
}

// Initialize loads the last hash and sequence from the entry stream
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	stream, err := r.client.ReadStream(ctx, EntryStreamName, opts, 1)
	if err != nil {
		// Stream doesn't exist yet, chain starts empty
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				r.lastHash = ""
				r.sequence = 0
				return nil
			}
		}
		return errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	event, err := stream.Recv()
	if err != nil {
		r.lastHash = ""
		r.sequence = 0
		return nil
	}

	if event.Event != nil && event.Event.EventType == EntryEventType {
		var entry Entry
		if err := json.Unmarshal(event.Event.Data, &entry); err == nil {
			r.lastHash = entry.Hash
			r.sequence = entry.Sequence
		}
	}

	return nil
}

// Append appends a new audit entry (thread-safe)
func (r *Repository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	entry.Sequence = r.sequence
	entry.PrevHash = r.lastHash

	// The hash covers prev_hash, so it must be recomputed here
	entry.Hash = entry.ComputeHash()

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit entry")
	}

	eventData := esdb.EventData{
		EventID:     uuid.New(),
		EventType:   EntryEventType,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		Metadata: []byte(fmt.Sprintf(`{"sequence":%d,"hash":"%s"}`,
			entry.Sequence, entry.Hash)),
	}

	_, err = r.client.AppendToStream(ctx, EntryStreamName, esdb.AppendToStreamOptions{}, eventData)
	if err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}

	r.lastHash = entry.Hash

	return nil
}

// FindByID finds an audit entry by ID. This scans the stream; the trail
// is queried rarely and stays small enough for a parish platform.
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Entry, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Forwards,
		From:      esdb.Start{},
	}

	stream, err := r.client.ReadStream(ctx, EntryStreamName, opts, 10000)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}

		if event.Event != nil && event.Event.EventType == EntryEventType {
			var entry Entry
			if err := json.Unmarshal(event.Event.Data, &entry); err == nil {
				if entry.ID == id {
					return &entry, nil
				}
			}
		}
	}

	return nil, errors.NotFound("audit entry", string(id))
}

// List lists audit entries with filters, newest first
func (r *Repository) List(ctx context.Context, filter ListEntriesFilter) ([]*Entry, int, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	maxEvents := uint64(1000)
	if filter.Limit > 0 {
		// Read extra to account for filtering
		maxEvents = uint64(filter.Limit + filter.Offset + 100)
	}

	stream, err := r.client.ReadStream(ctx, EntryStreamName, opts, maxEvents)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return []*Entry{}, 0, nil
			}
		}
		return nil, 0, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	var entries []*Entry
	total := 0

	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}

		if event.Event == nil || event.Event.EventType != EntryEventType {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(event.Event.Data, &entry); err != nil {
			continue
		}

		if !matchesFilter(&entry, filter) {
			continue
		}

		total++

		if filter.Offset > 0 && total <= filter.Offset {
			continue
		}
		if filter.Limit > 0 && len(entries) >= filter.Limit {
			continue
		}

		entries = append(entries, &entry)
	}

	return entries, total, nil
}

func matchesFilter(entry *Entry, filter ListEntriesFilter) bool {
	if filter.ActorID != nil && entry.ActorID != *filter.ActorID {
		return false
	}
	if filter.ActorType != nil && entry.ActorType != *filter.ActorType {
		return false
	}
	if filter.ActorCity != "" && entry.ActorCity != filter.ActorCity {
		return false
	}
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.ResourceType != "" && entry.ResourceType != filter.ResourceType {
		return false
	}
	if filter.ResourceID != nil && (entry.ResourceID == nil || *entry.ResourceID != *filter.ResourceID) {
		return false
	}
	if filter.StartTime != nil && entry.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && entry.Timestamp.After(*filter.EndTime) {
		return false
	}
	return true
}

// GetByResource gets audit entries for a specific resource
func (r *Repository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error) {
	filter := ListEntriesFilter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	}
	entries, _, err := r.List(ctx, filter)
	return entries, err
}

// VerifyResult contains detailed verification results
type VerifyResult struct {
	Valid          bool                `json:"valid"`
	Checked        int                 `json:"checked"`
	ContentValid   int                 `json:"content_valid"`
	ContentInvalid int                 `json:"content_invalid"`
	LinkageValid   int                 `json:"linkage_valid"`
	LinkageInvalid int                 `json:"linkage_invalid"`
	Violations     []string            `json:"violations,omitempty"`
	Entries        []VerifyEntryResult `json:"entries,omitempty"`
}

// VerifyEntryResult contains verification result for a single entry
type VerifyEntryResult struct {
	ID           types.ID `json:"id"`
	Sequence     int64    `json:"sequence"`
	Hash         string   `json:"hash"`
	ComputedHash string   `json:"computed_hash,omitempty"`
	PrevHash     string   `json:"prev_hash"`
	Valid        bool     `json:"valid"`
	ContentValid bool     `json:"content_valid"`
	LinkageValid bool     `json:"linkage_valid"`
	Action       string   `json:"action"`
}

// VerifyChain verifies the integrity of the audit chain. Two checks per
// entry: the content hash must match the entry, and prev_hash must match
// the previous entry's hash.
func (r *Repository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	stream, err := r.client.ReadStream(ctx, EntryStreamName, opts, uint64(limit))
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return &VerifyResult{Valid: true, Checked: 0}, nil
			}
		}
		return nil, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	result := &VerifyResult{Valid: true}

	var entries []*Entry
	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}

		if event.Event != nil && event.Event.EventType == EntryEventType {
			var entry Entry
			if err := json.Unmarshal(event.Event.Data, &entry); err == nil {
				entries = append(entries, &entry)
			}
		}
	}

	result.Checked = len(entries)

	// Entries arrive newest first
	for i, entry := range entries {
		computedHash := entry.ComputeHash()
		contentValid := computedHash == entry.Hash

		if contentValid {
			result.ContentValid++
		} else {
			result.Valid = false
			result.ContentInvalid++
			result.Violations = append(result.Violations,
				fmt.Sprintf("CONTENT TAMPERED: entry %d hash mismatch (stored: %s, computed: %s)",
					entry.Sequence, entry.Hash[:16], computedHash[:16]))
		}

		linkageValid := true
		if i < len(entries)-1 {
			prevEntry := entries[i+1]
			if entry.PrevHash != prevEntry.Hash {
				linkageValid = false
				result.Valid = false
				result.LinkageInvalid++
				result.Violations = append(result.Violations,
					fmt.Sprintf("CHAIN BROKEN: entry %d prev_hash doesn't match entry %d hash",
						entry.Sequence, prevEntry.Sequence))
			} else {
				result.LinkageValid++
			}
		} else {
			// Oldest loaded entry has no predecessor to check
			result.LinkageValid++
		}

		if includeDetails {
			result.Entries = append(result.Entries, VerifyEntryResult{
				ID:           entry.ID,
				Sequence:     entry.Sequence,
				Hash:         entry.Hash,
				ComputedHash: computedHash,
				PrevHash:     entry.PrevHash,
				Valid:        contentValid && linkageValid,
				ContentValid: contentValid,
				LinkageValid: linkageValid,
				Action:       entry.Action,
			})
		}
	}

	return result, nil
}

// GetLastHash returns the last hash in the chain
func (r *Repository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// GetSequence returns the current sequence number
func (r *Repository) GetSequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sequence
}

// Count returns the total number of audit entries
func (r *Repository) Count(ctx context.Context) (int, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Forwards,
		From:      esdb.Start{},
	}

	stream, err := r.client.ReadStream(ctx, EntryStreamName, opts, 100000)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return 0, nil
			}
		}
		return 0, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	count := 0
	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}
		if event.Event != nil && event.Event.EventType == EntryEventType {
			count++
		}
	}

	return count, nil
}

// SaveCheckpoint appends a checkpoint to the checkpoint stream
func (r *Repository) SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return errors.Wrap(err, "failed to marshal checkpoint")
	}

	eventData := esdb.EventData{
		EventID:     uuid.New(),
		EventType:   CheckpointEventType,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
	}

	_, err = r.client.AppendToStream(ctx, CheckpointStreamName, esdb.AppendToStreamOptions{}, eventData)
	if err != nil {
		return errors.Wrap(err, "failed to save checkpoint")
	}

	return nil
}

// GetLatestCheckpoint returns the most recent checkpoint, or nil when no
// checkpoint exists yet
func (r *Repository) GetLatestCheckpoint(ctx context.Context) (*Checkpoint, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	stream, err := r.client.ReadStream(ctx, CheckpointStreamName, opts, 1)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return nil, nil
			}
		}
		return nil, errors.Wrap(err, "failed to read checkpoints stream")
	}
	defer stream.Close()

	event, err := stream.Recv()
	if err != nil {
		return nil, nil
	}

	if event.Event != nil && event.Event.EventType == CheckpointEventType {
		var checkpoint Checkpoint
		if err := json.Unmarshal(event.Event.Data, &checkpoint); err == nil {
			return &checkpoint, nil
		}
	}

	return nil, nil
}

// ListCheckpoints returns checkpoints, newest first
func (r *Repository) ListCheckpoints(ctx context.Context, limit int) ([]Checkpoint, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	stream, err := r.client.ReadStream(ctx, CheckpointStreamName, opts, uint64(limit))
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return []Checkpoint{}, nil
			}
		}
		return nil, errors.Wrap(err, "failed to read checkpoints stream")
	}
	defer stream.Close()

	var checkpoints []Checkpoint
	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}

		if event.Event != nil && event.Event.EventType == CheckpointEventType {
			var checkpoint Checkpoint
			if err := json.Unmarshal(event.Event.Data, &checkpoint); err == nil {
				checkpoints = append(checkpoints, checkpoint)
			}
		}
	}

	return checkpoints, nil
}

// GetCheckpoint returns a checkpoint by ID
func (r *Repository) GetCheckpoint(ctx context.Context, id types.ID) (*Checkpoint, error) {
	checkpoints, err := r.ListCheckpoints(ctx, 1000)
	if err != nil {
		return nil, err
	}

	for _, cp := range checkpoints {
		if cp.ID == id {
			return &cp, nil
		}
	}

	return nil, errors.NotFound("checkpoint", string(id))
}
