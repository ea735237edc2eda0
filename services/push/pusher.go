package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// Pusher delivers device push notifications.
type Pusher interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// FCMPusher is the production implementation over Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

// NewFCMPusher creates a pusher over the given messaging client.
func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

// Send delivers one push message to the device token.
func (p *FCMPusher) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := p.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}
	return nil
}
