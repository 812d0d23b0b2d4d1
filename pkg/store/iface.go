// iface.go defines the SettingsStore interface for dependency injection
// and testing.
//
// The concrete *Store type satisfies this interface. The orchestrator and
// the cmd layer depend on SettingsStore instead of *Store, enabling mock
// injection in tests. The pending-notification methods are deliberately
// not part of this interface — they belong to the platform port, which
// wraps the same database through its own type.
package store

import (
	"time"

	"github.com/spendnote/nudge/pkg/model"
)

// SettingsStore is the persistence port for reminder settings and
// delivery state.
type SettingsStore interface {
	// --- Enablement & permission ---

	// RemindersEnabled reports the user-facing enablement flag.
	RemindersEnabled() (bool, error)

	// SetRemindersEnabled persists the enablement flag.
	SetRemindersEnabled(enabled bool) error

	// PermissionStatus returns the last-synced OS permission snapshot.
	PermissionStatus() (model.PermissionStatus, error)

	// SetPermissionStatus records the OS permission snapshot.
	SetPermissionStatus(p model.PermissionStatus) error

	// --- Policy ---

	// Policy assembles the reminder policy from its persisted parts.
	Policy() (model.ReminderPolicy, error)

	// SetPreferredTime validates and persists the preferred time.
	SetPreferredTime(raw string) error

	// SetQuietHours validates and persists the quiet-hours bounds.
	SetQuietHours(start, end string) error

	// SetMinimumSpacingHours persists the spacing floor.
	SetMinimumSpacingHours(hours int) error

	// --- Delivery record & slot ---

	// DeliveryRecord returns the last confirmed delivery.
	DeliveryRecord() (model.DeliveryRecord, error)

	// RecordDelivery persists a confirmed, gate-approved delivery.
	RecordDelivery(at time.Time, localDate model.CalendarDate) error

	// NextScheduledAt returns the pending slot's fire instant, if any.
	NextScheduledAt() (*time.Time, error)

	// SetNextScheduledAt records (or clears, with nil) the slot instant.
	SetNextScheduledAt(t *time.Time) error
}

// Compile-time check that *Store implements SettingsStore.
var _ SettingsStore = (*Store)(nil)
