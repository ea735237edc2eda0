package models

import "time"

// Delivery channels.
const (
	ChannelLive  = "live"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Delivery statuses.
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
	DeliverySkipped   = "skipped"
)

// DeliveryLog records the outcome of one delivery attempt on one channel.
type DeliveryLog struct {
	NotificationID string    `bson:"notificationId" json:"notificationId"`
	Channel        string    `bson:"channel" json:"channel"`
	Status         string    `bson:"status" json:"status"`
	Error          string    `bson:"error,omitempty" json:"error,omitempty"`
	AttemptedAt    time.Time `bson:"attemptedAt" json:"attemptedAt"`
}
