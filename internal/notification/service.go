package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eglise-connect/platform/internal/shared/config"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Provider delivers a notification over one channel
type Provider interface {
	Send(ctx context.Context, n *Notification) error
}

// Service queues notifications and delivers them through a worker pool.
// In-app notifications are kept in an in-memory inbox; other channels go
// out through the configured providers.
type Service struct {
	repo *Repository

	providers map[Channel]Provider

	mu    sync.RWMutex
	inbox map[types.ID][]*Notification

	queue   chan *Notification
	cfg     config.NotificationConfig
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	now func() time.Time
}

// inboxCap bounds the per-user in-app inbox.
const inboxCap = 200

// NewService creates a notification service. Providers may be nil for
// channels that are not configured; sends on those channels fail.
func NewService(repo *Repository, providers map[Channel]Provider, cfg config.NotificationConfig) *Service {
	return &Service{
		repo:      repo,
		providers: providers,
		inbox:     make(map[types.ID][]*Notification),
		queue:     make(chan *Notification, cfg.BufferSize),
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Start launches the delivery workers
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("notification service already started")
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	return nil
}

// Stop drains the workers
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

// Enqueue validates a notification against the recipient's preferences
// and queues it for delivery.
func (s *Service) Enqueue(ctx context.Context, n *Notification) error {
	if n.ID.IsZero() {
		n.ID = types.NewID()
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	n.Status = StatusPending
	n.CreatedAt = s.now()

	prefs, err := s.preferences(ctx, n.RecipientID)
	if err != nil {
		return err
	}

	if reason := s.suppressed(n, prefs); reason != "" {
		metrics.RecordNotificationSent(string(n.Channel), "suppressed")
		return fmt.Errorf("notification suppressed: %s", reason)
	}

	select {
	case s.queue <- n:
		return nil
	default:
		metrics.RecordNotificationSent(string(n.Channel), "dropped")
		return fmt.Errorf("notification queue is full")
	}
}

// Inbox returns a user's in-app notifications, newest first
func (s *Service) Inbox(userID types.ID) []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.inbox[userID]
	out := make([]*Notification, len(items))
	for i, n := range items {
		out[len(items)-1-i] = n
	}
	return out
}

// MarkRead marks an in-app notification as read
func (s *Service) MarkRead(userID, notificationID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.inbox[userID] {
		if n.ID == notificationID {
			now := s.now()
			n.ReadAt = &now
			n.Status = StatusRead
			return nil
		}
	}

	return fmt.Errorf("notification not found: %s", notificationID)
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case n := <-s.queue:
			s.deliver(ctx, n)
		}
	}
}

func (s *Service) deliver(ctx context.Context, n *Notification) {
	if n.Channel == ChannelInApp {
		s.storeInApp(n)
		metrics.RecordNotificationSent(string(n.Channel), "sent")
		return
	}

	provider := s.providers[n.Channel]
	if provider == nil {
		n.Status = StatusFailed
		n.LastError = fmt.Sprintf("no provider for channel %s", n.Channel)
		metrics.RecordNotificationSent(string(n.Channel), "failed")
		return
	}

	if err := provider.Send(ctx, n); err != nil {
		n.LastError = err.Error()
		n.RetryCount++

		if n.RetryCount >= s.cfg.RetryAttempts {
			n.Status = StatusFailed
			metrics.RecordNotificationSent(string(n.Channel), "failed")
			return
		}

		// Requeue after the retry delay without blocking the worker.
		go func() {
			select {
			case <-s.stopCh:
			case <-time.After(s.cfg.RetryDelay):
				select {
				case s.queue <- n:
				default:
				}
			}
		}()
		return
	}

	now := s.now()
	n.SentAt = &now
	n.Status = StatusSent
	metrics.RecordNotificationSent(string(n.Channel), "sent")
}

func (s *Service) storeInApp(n *Notification) {
	now := s.now()
	n.SentAt = &now
	n.Status = StatusSent

	s.mu.Lock()
	defer s.mu.Unlock()

	items := append(s.inbox[n.RecipientID], n)
	if len(items) > inboxCap {
		items = items[len(items)-inboxCap:]
	}
	s.inbox[n.RecipientID] = items
}

func (s *Service) preferences(ctx context.Context, userID types.ID) (*Preferences, error) {
	if s.repo == nil {
		return DefaultPreferences(userID), nil
	}
	return s.repo.GetPreferences(ctx, userID)
}

// suppressed returns a non-empty reason when the recipient's preferences
// block delivery. Critical notifications pass quiet hours when the
// recipient allows it, but a disabled channel always wins.
func (s *Service) suppressed(n *Notification, prefs *Preferences) string {
	enabled := map[Channel]bool{
		ChannelPush:  prefs.EnablePush,
		ChannelEmail: prefs.EnableEmail,
		ChannelSMS:   prefs.EnableSMS,
		ChannelInApp: prefs.EnableInApp,
	}
	if !enabled[n.Channel] {
		return fmt.Sprintf("channel %s disabled by recipient", n.Channel)
	}

	if prefs.QuietHoursEnabled && n.Channel != ChannelInApp {
		if inQuietHours(s.now(), prefs.QuietHoursStart, prefs.QuietHoursEnd) {
			if !(prefs.AlwaysAllowCritical && n.Priority == PriorityCritical) {
				return "quiet hours active"
			}
		}
	}

	return ""
}

// inQuietHours reports whether t falls inside the window. A window with
// start after end crosses midnight.
func inQuietHours(t time.Time, start, end string) bool {
	if start == "" || end == "" {
		return false
	}

	current := t.Format("15:04")
	if start <= end {
		return current >= start && current < end
	}
	return current >= start || current < end
}
