package models

import "time"

// Reminder subject kinds.
const (
	SubjectCertificate = "certificate"
	SubjectWorkshop    = "workshop"
	SubjectEvent       = "event"
)

// ReminderSubject identifies what a reminder is about. The referenced entity
// lives in the external store; only the kind discriminant, opaque id and the
// denormalized label/deadline are carried here.
type ReminderSubject struct {
	Kind     string    `bson:"kind" json:"kind"`
	ID       string    `bson:"id" json:"id"`
	Label    string    `bson:"label" json:"label"`
	Deadline time.Time `bson:"deadline" json:"deadline"`
}

// ScheduledReminder is a durable obligation to notify a recipient before a
// deadline. FireAt is always strictly before Subject.Deadline; once Sent is
// set the reminder is never fired again.
type ScheduledReminder struct {
	ID          string          `bson:"id" json:"id"`
	RecipientID string          `bson:"recipientId" json:"recipientId"`
	Subject     ReminderSubject `bson:"subject" json:"subject"`
	FireAt      time.Time       `bson:"fireAt" json:"fireAt"`
	HoursBefore int             `bson:"hoursBefore" json:"hoursBefore"`
	Sent        bool            `bson:"sent" json:"sent"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
}
