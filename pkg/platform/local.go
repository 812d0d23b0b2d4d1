package platform

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spendnote/nudge/pkg/model"
	"github.com/spendnote/nudge/pkg/store"
)

// Local is a Platform backed by the shared SQLite database. Pending
// notifications persist across process restarts, which is what lets the
// orchestrator's reconciliation paths be exercised end to end from the
// CLI: schedule in one invocation, fire in a later one.
type Local struct {
	store *store.Store
	log   zerolog.Logger
}

// NewLocal returns a Local platform over the given store.
func NewLocal(s *store.Store, logger zerolog.Logger) *Local {
	return &Local{
		store: s,
		log:   logger.With().Str("component", "platform").Logger(),
	}
}

// Permissions returns the simulated OS permission state.
func (l *Local) Permissions() (model.PermissionStatus, error) {
	return l.store.OSPermission()
}

// CanAskAgain reports whether the user can still be prompted. Mirrors the
// common mobile semantics: once denied, the OS stops showing the prompt.
func (l *Local) CanAskAgain() (bool, error) {
	p, err := l.store.OSPermission()
	if err != nil {
		return false, err
	}
	return p != model.PermissionDenied, nil
}

// RequestPermissions prompts the user. In this simulation an undetermined
// state resolves to granted (the CLI's deny/revoke commands pre-seed the
// denied case); a determined state is returned unchanged.
func (l *Local) RequestPermissions() (model.PermissionStatus, error) {
	p, err := l.store.OSPermission()
	if err != nil {
		return model.PermissionUndetermined, err
	}
	if p != model.PermissionUndetermined {
		return p, nil
	}
	if err := l.store.SetOSPermission(model.PermissionGranted); err != nil {
		return model.PermissionUndetermined, err
	}
	l.log.Debug().Msg("permission prompt resolved to granted")
	return model.PermissionGranted, nil
}

// EnsureChannel registers the notification channel. Safe to call any
// number of times.
func (l *Local) EnsureChannel() error {
	created, err := l.store.ChannelCreated()
	if err != nil {
		return err
	}
	if created {
		return nil
	}
	l.log.Debug().Msg("registering notification channel")
	return l.store.SetChannelCreated()
}

// ScheduleAt schedules one notification and returns its generated ID.
func (l *Local) ScheduleAt(payload model.Payload, at time.Time) (string, error) {
	slot := model.ScheduledSlot{
		ID:      uuid.NewString(),
		FireAt:  at,
		Payload: payload,
	}
	if err := l.store.InsertPending(slot); err != nil {
		return "", err
	}
	l.log.Debug().
		Str("id", slot.ID).
		Time("fire_at", at).
		Bool("is_test", payload.IsTest).
		Msg("notification scheduled")
	return slot.ID, nil
}

// Cancel removes a pending notification.
func (l *Local) Cancel(id string) error {
	return l.store.DeletePending(id)
}

// ListPending returns all pending notifications.
func (l *Local) ListPending() ([]model.ScheduledSlot, error) {
	return l.store.ListPending()
}

// PopDue drains every notification due at or before now, simulating the OS
// firing them. Not part of the Platform port; the CLI's fire command calls
// this directly and routes each slot through the orchestrator's fire-time
// handler.
func (l *Local) PopDue(now time.Time) ([]model.ScheduledSlot, error) {
	return l.store.PopDue(now)
}

// Compile-time check that *Local implements Platform.
var _ Platform = (*Local)(nil)
