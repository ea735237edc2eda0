package preferenceRepo

import (
	"notifyhub/models"
)

// PreferenceRepository defines methods for recipient preference data access.
type PreferenceRepository interface {
	// Get retrieves the preferences row for a recipient. A missing row is not
	// an error: (nil, nil) means "use defaults".
	Get(recipientID string) (*models.RecipientPreferences, error)
	// Upsert creates or replaces the preferences row.
	Upsert(p *models.RecipientPreferences) error
}
