package scheduler

import (
	"fmt"

	"notifyhub/models"
)

// renderReminder produces the notification title and body for a due
// reminder, keyed by the subject kind.
func renderReminder(rem *models.ScheduledReminder) (title, body string) {
	deadline := rem.Subject.Deadline.Format("Mon, 02 Jan 2006 15:04")

	switch rem.Subject.Kind {
	case models.SubjectCertificate:
		title = fmt.Sprintf("Certificate deadline approaching: %s", rem.Subject.Label)
		body = fmt.Sprintf("Your certificate %q expires on %s. Renew it before the deadline to keep it valid.",
			rem.Subject.Label, deadline)
	case models.SubjectWorkshop:
		title = fmt.Sprintf("Workshop starting soon: %s", rem.Subject.Label)
		body = fmt.Sprintf("The workshop %q begins on %s. Make sure you are registered and ready to attend.",
			rem.Subject.Label, deadline)
	case models.SubjectEvent:
		title = fmt.Sprintf("Upcoming event: %s", rem.Subject.Label)
		body = fmt.Sprintf("The event %q takes place on %s.", rem.Subject.Label, deadline)
	default:
		title = fmt.Sprintf("Reminder: %s", rem.Subject.Label)
		body = fmt.Sprintf("A deadline for %q is approaching on %s.", rem.Subject.Label, deadline)
	}
	return title, body
}
