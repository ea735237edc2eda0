package models

// DefaultReminderOffsets are the hours-before-deadline offsets used when a
// recipient has no stored preferences.
var DefaultReminderOffsets = []int{24, 72}

// RecipientPreferences holds a recipient's delivery choices. A missing row is
// a valid state meaning "use defaults": every channel on, default offsets.
type RecipientPreferences struct {
	RecipientID     string          `bson:"recipientId" json:"recipientId"`
	LiveEnabled     bool            `bson:"liveEnabled" json:"liveEnabled"`
	EmailEnabled    bool            `bson:"emailEnabled" json:"emailEnabled"`
	PushEnabled     bool            `bson:"pushEnabled" json:"pushEnabled"`
	Categories      map[string]bool `bson:"categories,omitempty" json:"categories,omitempty"`
	ReminderOffsets []int           `bson:"reminderOffsets,omitempty" json:"reminderOffsets,omitempty"`

	// Delivery addresses for the email and push channels. The user schema is
	// external; these ride on the preferences row.
	Email       string `bson:"email,omitempty" json:"email,omitempty"`
	DeviceToken string `bson:"deviceToken,omitempty" json:"deviceToken,omitempty"`
}

// DefaultPreferences returns the preferences applied when no row exists.
func DefaultPreferences(recipientID string) *RecipientPreferences {
	return &RecipientPreferences{
		RecipientID:     recipientID,
		LiveEnabled:     true,
		EmailEnabled:    true,
		PushEnabled:     true,
		ReminderOffsets: append([]int(nil), DefaultReminderOffsets...),
	}
}

// CategoryEnabled reports whether the given notification category is enabled.
// Absent keys default to enabled.
func (p *RecipientPreferences) CategoryEnabled(category string) bool {
	if p.Categories == nil {
		return true
	}
	enabled, ok := p.Categories[category]
	if !ok {
		return true
	}
	return enabled
}

// Offsets returns the reminder offsets, falling back to the defaults.
func (p *RecipientPreferences) Offsets() []int {
	if len(p.ReminderOffsets) == 0 {
		return append([]int(nil), DefaultReminderOffsets...)
	}
	return p.ReminderOffsets
}
