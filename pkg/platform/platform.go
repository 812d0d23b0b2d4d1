// Package platform defines the notification-platform port and its local
// implementation.
//
// The orchestrator never talks to an OS notification API directly; it goes
// through the Platform interface. Local backs the port with the shared
// SQLite database — pending notifications are rows, and "the OS firing a
// notification" is draining the due rows. Memory is an in-memory fake for
// orchestrator tests with scripted permission responses and error
// injection.
package platform

import (
	"time"

	"github.com/spendnote/nudge/pkg/model"
)

// Platform is the external notification-scheduler port. All failures are
// plain errors; the orchestrator logs and swallows them (the next
// reconciliation cycle retries).
type Platform interface {
	// Permissions returns the current OS notification permission.
	Permissions() (model.PermissionStatus, error)

	// CanAskAgain reports whether the OS still allows prompting the user.
	CanAskAgain() (bool, error)

	// RequestPermissions prompts the user if possible and returns the
	// resulting permission.
	RequestPermissions() (model.PermissionStatus, error)

	// EnsureChannel registers the notification channel. Idempotent.
	EnsureChannel() error

	// ScheduleAt schedules one notification and returns its platform ID.
	ScheduleAt(payload model.Payload, at time.Time) (string, error)

	// Cancel removes a pending notification. Unknown IDs are a no-op.
	Cancel(id string) error

	// ListPending returns every pending notification of this app.
	ListPending() ([]model.ScheduledSlot, error)
}
