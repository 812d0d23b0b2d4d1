// platform_state.go holds the state backing the local notification
// platform: the simulated OS permission and the channel-registration flag.
//
// These keys model what the operating system owns, not what the app owns —
// reminderPermissionStatus in iface.go is the app's last-synced snapshot of
// this value, and the two deliberately diverge when permission changes
// outside the app. They are kept out of the SettingsStore interface for the
// same reason.
package store

import "github.com/spendnote/nudge/pkg/model"

const (
	keyOSPermission   = "osPermissionStatus"
	keyChannelCreated = "osNotificationChannelCreated"
)

// OSPermission returns the simulated OS-side permission state.
// Undetermined when never set.
func (s *Store) OSPermission() (model.PermissionStatus, error) {
	v, ok, err := s.getSetting(keyOSPermission)
	if err != nil || !ok {
		return model.PermissionUndetermined, err
	}
	switch model.PermissionStatus(v) {
	case model.PermissionGranted, model.PermissionDenied:
		return model.PermissionStatus(v), nil
	default:
		return model.PermissionUndetermined, nil
	}
}

// SetOSPermission sets the simulated OS-side permission state.
func (s *Store) SetOSPermission(p model.PermissionStatus) error {
	return s.setSetting(keyOSPermission, string(p))
}

// ChannelCreated reports whether the notification channel was registered.
func (s *Store) ChannelCreated() (bool, error) {
	v, ok, err := s.getSetting(keyChannelCreated)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

// SetChannelCreated records channel registration.
func (s *Store) SetChannelCreated() error {
	return s.setSetting(keyChannelCreated, "true")
}
