package notification

import (
	"context"
	"fmt"
	"log"
)

// ConsoleProvider logs notifications instead of delivering them. Used in
// development and for channels without a real gateway yet.
type ConsoleProvider struct {
	label string
}

// NewConsoleProvider creates a console provider for one channel
func NewConsoleProvider(label string) *ConsoleProvider {
	return &ConsoleProvider{label: label}
}

// Send logs the notification
func (p *ConsoleProvider) Send(ctx context.Context, n *Notification) error {
	target := n.RecipientID.String()
	switch n.Channel {
	case ChannelEmail:
		if n.Email == "" {
			return fmt.Errorf("no email address for recipient %s", n.RecipientID)
		}
		target = n.Email
	case ChannelSMS:
		if n.Phone == "" {
			return fmt.Errorf("no phone number for recipient %s", n.RecipientID)
		}
		target = n.Phone
	}

	log.Printf("[%s] to=%s priority=%s subject=%q", p.label, target, n.Priority, n.Subject)
	return nil
}
