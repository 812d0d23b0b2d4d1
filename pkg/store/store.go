// Package store manages all SQLite persistence for nudge.
//
// SQLite in WAL mode holds the two pieces of durable state this subsystem
// touches: the reminder settings (policy, enablement, delivery record,
// permission snapshot, next-scheduled instant) and the pending-notification
// table backing the local platform scheduler. Everything survives app
// restarts; the orchestrator reconciles whatever it finds here against the
// live OS state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spendnote/nudge/pkg/model"

	_ "modernc.org/sqlite"
)

// Settings keys. These names are the persistence contract with the
// surrounding app's settings screen; do not rename.
const (
	keyRemindersEnabled       = "remindersEnabled"
	keyPreferredTime          = "reminderPreferredTimeLocal"
	keyQuietHoursStart        = "reminderQuietHoursStart"
	keyQuietHoursEnd          = "reminderQuietHoursEnd"
	keyMinimumSpacingHours    = "reminderMinimumSpacingHours"
	keyLastDeliveredAt        = "reminderLastDeliveredAtUtc"
	keyLastDeliveredLocalDate = "reminderLastDeliveredLocalDate"
	keyNextScheduledAt        = "reminderNextScheduledAtUtc"
	keyPermissionStatus       = "reminderPermissionStatus"
)

// defaultPreferredTime is used until the user picks a time.
var defaultPreferredTime = model.LocalTime{Hour: 9}

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention wraps retryOp from retry.go with the default config.
// All store write operations should use this to handle transient SQLite
// errors (BUSY, LOCKED, IOERR_SHORT_READ) under concurrent access.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending_notifications (
		id      TEXT PRIMARY KEY,
		kind    TEXT NOT NULL,
		payload TEXT NOT NULL,
		fire_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pending_fire_at ON pending_notifications(fire_at);
	CREATE INDEX IF NOT EXISTS idx_pending_kind ON pending_notifications(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Raw settings access
// ---------------------------------------------------------------------------

// getSetting returns (value, true) when the key exists.
func (s *Store) getSetting(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) setSetting(key, value string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		return err
	})
}

func (s *Store) clearSetting(key string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
		return err
	})
}

// ---------------------------------------------------------------------------
// Enablement & permission
// ---------------------------------------------------------------------------

// RemindersEnabled reports whether the user has reminders switched on.
// Defaults to false when never set.
func (s *Store) RemindersEnabled() (bool, error) {
	v, ok, err := s.getSetting(keyRemindersEnabled)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

// SetRemindersEnabled persists the enablement flag.
func (s *Store) SetRemindersEnabled(enabled bool) error {
	return s.setSetting(keyRemindersEnabled, strconv.FormatBool(enabled))
}

// PermissionStatus returns the last-synced OS permission snapshot.
// Defaults to undetermined when never synced.
func (s *Store) PermissionStatus() (model.PermissionStatus, error) {
	v, ok, err := s.getSetting(keyPermissionStatus)
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

// SetPermissionStatus records the OS permission snapshot.
func (s *Store) SetPermissionStatus(p model.PermissionStatus) error {
	return s.setSetting(keyPermissionStatus, string(p))
}

// ---------------------------------------------------------------------------
// Policy
// ---------------------------------------------------------------------------

// Policy assembles the reminder policy from its persisted parts.
func (s *Store) Policy() (model.ReminderPolicy, error) {
	var p model.ReminderPolicy

	p.PreferredTime = defaultPreferredTime
	if v, ok, err := s.getSetting(keyPreferredTime); err != nil {
		return p, err
	} else if ok {
		lt, err := model.ParseLocalTime(v)
		if err != nil {
			return p, fmt.Errorf("stored preferred time: %w", err)
		}
		p.PreferredTime = lt
	}

	start, err := s.quietBound(keyQuietHoursStart)
	if err != nil {
		return p, err
	}
	end, err := s.quietBound(keyQuietHoursEnd)
	if err != nil {
		return p, err
	}
	p.QuietHours = model.QuietHours{Start: start, End: end}

	p.MinimumSpacingHours = model.DefaultMinimumSpacingHours
	if v, ok, err := s.getSetting(keyMinimumSpacingHours); err != nil {
		return p, err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("stored spacing hours %q: %w", v, err)
		}
		p.MinimumSpacingHours = n
	}
	return p, nil
}

func (s *Store) quietBound(key string) (*model.LocalTime, error) {
	v, ok, err := s.getSetting(key)
	if err != nil || !ok {
		return nil, err
	}
	lt, err := model.ParseLocalTime(v)
	if err != nil {
		return nil, fmt.Errorf("stored quiet-hours bound: %w", err)
	}
	return &lt, nil
}

// SetPreferredTime validates and persists the preferred delivery time.
// The raw string is parsed before it ever reaches the database.
func (s *Store) SetPreferredTime(raw string) error {
	lt, err := model.ParseLocalTime(raw)
	if err != nil {
		return err
	}
	return s.setSetting(keyPreferredTime, lt.String())
}

// SetQuietHours validates and persists both quiet-hours bounds. Empty
// strings clear the corresponding bound (disabling the window).
func (s *Store) SetQuietHours(start, end string) error {
	for key, raw := range map[string]string{keyQuietHoursStart: start, keyQuietHoursEnd: end} {
		if raw == "" {
			if err := s.clearSetting(key); err != nil {
				return err
			}
			continue
		}
		lt, err := model.ParseLocalTime(raw)
		if err != nil {
			return err
		}
		if err := s.setSetting(key, lt.String()); err != nil {
			return err
		}
	}
	return nil
}

// SetMinimumSpacingHours persists the spacing floor.
func (s *Store) SetMinimumSpacingHours(hours int) error {
	if hours < 0 {
		return fmt.Errorf("spacing hours must be non-negative, got %d", hours)
	}
	return s.setSetting(keyMinimumSpacingHours, strconv.Itoa(hours))
}

// ---------------------------------------------------------------------------
// Delivery record & slot
// ---------------------------------------------------------------------------

// DeliveryRecord returns the last confirmed delivery, empty when no
// delivery has ever happened.
func (s *Store) DeliveryRecord() (model.DeliveryRecord, error) {
	var rec model.DeliveryRecord
	if v, ok, err := s.getSetting(keyLastDeliveredAt); err != nil {
		return rec, err
	} else if ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return rec, fmt.Errorf("parse last delivered at: %w", err)
		}
		rec.LastDeliveredAt = &t
	}
	if v, ok, err := s.getSetting(keyLastDeliveredLocalDate); err != nil {
		return rec, err
	} else if ok {
		rec.LastDeliveredLocalDate = model.CalendarDate(v)
	}
	return rec, nil
}

// RecordDelivery persists a confirmed, gate-approved delivery.
func (s *Store) RecordDelivery(at time.Time, localDate model.CalendarDate) error {
	if err := s.setSetting(keyLastDeliveredAt, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return s.setSetting(keyLastDeliveredLocalDate, string(localDate))
}

// NextScheduledAt returns the persisted fire instant of the pending slot,
// nil when no slot is recorded.
func (s *Store) NextScheduledAt() (*time.Time, error) {
	v, ok, err := s.getSetting(keyNextScheduledAt)
	if err != nil || !ok {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("parse next scheduled at: %w", err)
	}
	return &t, nil
}

// SetNextScheduledAt records the pending slot's fire instant. A nil value
// clears the record.
func (s *Store) SetNextScheduledAt(t *time.Time) error {
	if t == nil {
		return s.clearSetting(keyNextScheduledAt)
	}
	return s.setSetting(keyNextScheduledAt, t.UTC().Format(time.RFC3339Nano))
}

// ---------------------------------------------------------------------------
// Pending notifications (local platform scheduler backing)
// ---------------------------------------------------------------------------

// InsertPending adds a pending notification.
func (s *Store) InsertPending(slot model.ScheduledSlot) error {
	payload, err := json.Marshal(slot.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO pending_notifications (id, kind, payload, fire_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   kind = excluded.kind, payload = excluded.payload, fire_at = excluded.fire_at`,
			slot.ID, slot.Payload.Kind, string(payload),
			slot.FireAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// DeletePending removes a pending notification by ID. Deleting an unknown
// ID is a no-op.
func (s *Store) DeletePending(id string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(`DELETE FROM pending_notifications WHERE id = ?`, id)
		return err
	})
}

// ListPending returns all pending notifications ordered by fire instant.
func (s *Store) ListPending() ([]model.ScheduledSlot, error) {
	rows, err := s.db.Query(
		`SELECT id, payload, fire_at FROM pending_notifications ORDER BY fire_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// PopDue atomically removes and returns every pending notification whose
// fire instant is at or before now. This is the local stand-in for the OS
// scheduler firing notifications.
func (s *Store) PopDue(now time.Time) ([]model.ScheduledSlot, error) {
	cutoff := now.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	rows, err := tx.Query(
		`SELECT id, payload, fire_at FROM pending_notifications
		 WHERE fire_at <= ? ORDER BY fire_at ASC, id ASC`, cutoff,
	)
	if err != nil {
		return nil, err
	}
	due, err := scanSlots(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM pending_notifications WHERE fire_at <= ?`, cutoff); err != nil {
		return nil, fmt.Errorf("pop due: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pop: %w", err)
	}
	return due, nil
}

func scanSlots(rows *sql.Rows) ([]model.ScheduledSlot, error) {
	var slots []model.ScheduledSlot
	for rows.Next() {
		var slot model.ScheduledSlot
		var payload, fireStr string
		if err := rows.Scan(&slot.ID, &payload, &fireStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &slot.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", slot.ID, err)
		}
		var parseErr error
		slot.FireAt, parseErr = time.Parse(time.RFC3339Nano, fireStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse fire_at for %s: %w", slot.ID, parseErr)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
