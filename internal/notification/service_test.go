package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eglise-connect/platform/internal/shared/config"
	"github.com/eglise-connect/platform/internal/shared/types"
)

type fakeProvider struct {
	mu       sync.Mutex
	sent     []*Notification
	failures int
}

func (p *fakeProvider) Send(ctx context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return fmt.Errorf("transient failure")
	}
	p.sent = append(p.sent, n)
	return nil
}

func (p *fakeProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func testConfig() config.NotificationConfig {
	return config.NotificationConfig{
		Workers:       2,
		BufferSize:    16,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Millisecond,
	}
}

func TestInQuietHours(t *testing.T) {
	at := func(hhmm string) time.Time {
		parsed, _ := time.Parse("15:04", hhmm)
		return parsed
	}

	tests := []struct {
		name     string
		now      string
		start    string
		end      string
		expected bool
	}{
		{"inside simple window", "23:00", "22:00", "23:30", true},
		{"outside simple window", "12:00", "22:00", "23:30", false},
		{"midnight crossing, before midnight", "23:00", "22:00", "07:00", true},
		{"midnight crossing, after midnight", "03:00", "22:00", "07:00", true},
		{"midnight crossing, daytime", "12:00", "22:00", "07:00", false},
		{"empty window", "23:00", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inQuietHours(at(tt.now), tt.start, tt.end); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEnqueueRespectsDisabledChannel(t *testing.T) {
	s := NewService(nil, nil, testConfig())

	userID := types.NewID()
	prefs := DefaultPreferences(userID)
	prefs.EnableSMS = false

	n := &Notification{RecipientID: userID, Channel: ChannelSMS, Subject: "test"}
	if reason := s.suppressed(n, prefs); reason == "" {
		t.Error("Disabled channel should suppress delivery")
	}
}

func TestQuietHoursCriticalBypass(t *testing.T) {
	s := NewService(nil, nil, testConfig())
	s.now = func() time.Time {
		parsed, _ := time.Parse("15:04", "23:00")
		return parsed
	}

	userID := types.NewID()
	prefs := DefaultPreferences(userID)
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "22:00"
	prefs.QuietHoursEnd = "07:00"

	normal := &Notification{RecipientID: userID, Channel: ChannelPush, Priority: PriorityNormal}
	if reason := s.suppressed(normal, prefs); reason == "" {
		t.Error("Normal priority should be suppressed during quiet hours")
	}

	critical := &Notification{RecipientID: userID, Channel: ChannelPush, Priority: PriorityCritical}
	if reason := s.suppressed(critical, prefs); reason != "" {
		t.Errorf("Critical should bypass quiet hours, got: %s", reason)
	}

	prefs.AlwaysAllowCritical = false
	if reason := s.suppressed(critical, prefs); reason == "" {
		t.Error("Critical should be suppressed when the bypass is off")
	}
}

func TestDeliveryThroughWorkerPool(t *testing.T) {
	provider := &fakeProvider{}
	s := NewService(nil, map[Channel]Provider{ChannelEmail: provider}, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Stop()

	n := &Notification{
		RecipientID: types.NewID(),
		Channel:     ChannelEmail,
		Email:       "marc@example.org",
		Subject:     "Visite de suivi",
	}
	if err := s.Enqueue(ctx, n); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for provider.sentCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if provider.sentCount() != 1 {
		t.Fatalf("Expected 1 delivery, got %d", provider.sentCount())
	}
}

func TestDeliveryRetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{failures: 2}
	s := NewService(nil, map[Channel]Provider{ChannelEmail: provider}, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Stop()

	n := &Notification{
		RecipientID: types.NewID(),
		Channel:     ChannelEmail,
		Email:       "anne@example.org",
		Subject:     "Relance",
	}
	if err := s.Enqueue(ctx, n); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for provider.sentCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if provider.sentCount() != 1 {
		t.Fatalf("Expected delivery after retries, got %d", provider.sentCount())
	}
	if n.RetryCount != 2 {
		t.Errorf("Expected 2 retries, got %d", n.RetryCount)
	}
}

func TestInAppInboxAndRead(t *testing.T) {
	s := NewService(nil, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer s.Stop()

	userID := types.NewID()
	n := &Notification{RecipientID: userID, Channel: ChannelInApp, Subject: "Bienvenue"}
	if err := s.Enqueue(ctx, n); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Inbox(userID)) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	inbox := s.Inbox(userID)
	if len(inbox) != 1 {
		t.Fatalf("Expected 1 inbox item, got %d", len(inbox))
	}

	if err := s.MarkRead(userID, inbox[0].ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Inbox(userID)[0].Status != StatusRead {
		t.Error("Notification should be marked read")
	}

	if err := s.MarkRead(userID, types.NewID()); err == nil {
		t.Error("Unknown notification should not be markable")
	}
}
