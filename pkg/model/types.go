// Package model defines the core domain types for nudge.
//
// Nudge decides when a single recurring "log your spending" reminder is
// allowed to fire. Three rules govern delivery:
//
//   - Quiet hours: a configured window (possibly crossing midnight) during
//     which a reminder must never fire.
//   - Daily gate: at most one delivery per local calendar day.
//   - Spacing: a minimum wall-clock duration between two deliveries.
//
// The types here are plain values. The eligibility and gate packages apply
// the rules; the orchestrator owns the mutable scheduling state.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeFormat is returned for any time-of-day string that is not
// strict 24-hour "HH:MM". Malformed input fails at the configuration
// boundary, before persistence; it is never coerced.
var ErrInvalidTimeFormat = errors.New("invalid time format: want 24-hour HH:MM")

// LocalTime is a wall-clock time of day with minute precision.
type LocalTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseLocalTime parses a strict "HH:MM" string. Exactly five characters,
// zero-padded, 00:00 through 23:59. Anything else is ErrInvalidTimeFormat.
func ParseLocalTime(s string) (LocalTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return LocalTime{Hour: h, Minute: m}, nil
}

// String renders the time as zero-padded "HH:MM".
func (lt LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", lt.Hour, lt.Minute)
}

// MinuteOfDay returns the time as minutes since local midnight (0..1439).
func (lt LocalTime) MinuteOfDay() int { return lt.Hour*60 + lt.Minute }

// On returns the instant at this time of day on day's calendar date, in
// day's location.
func (lt LocalTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, lt.Hour, lt.Minute, 0, 0, day.Location())
}

// QuietHours is a wraparound interval of the day during which reminders
// must not fire. The window is half-open: [Start, End). Start > End means
// the window crosses midnight (e.g. 22:00–07:00). The window is disabled —
// it never contains any instant — when either bound is absent or when
// Start == End (a degenerate window).
type QuietHours struct {
	Start *LocalTime `json:"start,omitempty"`
	End   *LocalTime `json:"end,omitempty"`
}

// Enabled reports whether the window is active: both bounds present and
// distinct.
func (q QuietHours) Enabled() bool {
	return q.Start != nil && q.End != nil && *q.Start != *q.End
}

// Contains reports whether t's local minute-of-day falls inside the window.
// Same-day window (Start < End): Start <= m < End. Cross-midnight window
// (Start > End): m >= Start or m < End.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled() {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	start, end := q.Start.MinuteOfDay(), q.End.MinuteOfDay()
	if start < end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// EndInstant returns the instant at which the window containing t ends:
// End on t's own date for a same-day window or the early side of a
// cross-midnight window, End on the following date for the late side of a
// cross-midnight window. Only meaningful when Contains(t) is true.
func (q QuietHours) EndInstant(t time.Time) time.Time {
	m := t.Hour()*60 + t.Minute()
	start, end := q.Start.MinuteOfDay(), q.End.MinuteOfDay()
	if start > end && m >= start {
		// Late side of a cross-midnight window: the end is tomorrow.
		return q.End.On(t.AddDate(0, 0, 1))
	}
	return q.End.On(t)
}

// DefaultMinimumSpacingHours is the spacing applied when none is configured.
const DefaultMinimumSpacingHours = 12

// ReminderPolicy is the user-configured delivery policy. Owned by external
// settings; this subsystem only reads it.
type ReminderPolicy struct {
	PreferredTime       LocalTime  `json:"preferred_time"`
	QuietHours          QuietHours `json:"quiet_hours"`
	MinimumSpacingHours int        `json:"minimum_spacing_hours"`
}

// Spacing returns the minimum spacing as a duration, applying the default
// when the configured value is zero or negative.
func (p ReminderPolicy) Spacing() time.Duration {
	h := p.MinimumSpacingHours
	if h <= 0 {
		h = DefaultMinimumSpacingHours
	}
	return time.Duration(h) * time.Hour
}

// CalendarDate is a local calendar date in "YYYY-MM-DD" form.
type CalendarDate string

const calendarDateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) CalendarDate {
	return CalendarDate(t.Format(calendarDateLayout))
}

// DeliveryRecord tracks the last confirmed, gate-approved delivery. Mutated
// only by the orchestrator after an approved delivery.
type DeliveryRecord struct {
	LastDeliveredAt        *time.Time   `json:"last_delivered_at_utc,omitempty"`
	LastDeliveredLocalDate CalendarDate `json:"last_delivered_local_date,omitempty"`
}

// EligibilityResult is the immutable output of the eligibility calculator,
// recomputed fresh on every call.
type EligibilityResult struct {
	CandidateLocal     time.Time    `json:"candidate_local"`
	CandidateUTC       time.Time    `json:"candidate_utc"`
	CandidateLocalDate CalendarDate `json:"candidate_local_date"`

	MinimumSpacingApplied bool `json:"minimum_spacing_applied"`
	DailyGateApplied      bool `json:"daily_gate_applied"`
	QuietHoursAdjusted    bool `json:"quiet_hours_adjusted"`

	// Unresolved is set when the daily-gate loop hit its iteration ceiling
	// without jointly satisfying spacing, the daily gate, and quiet hours.
	// The candidate is then best-effort and may violate a rule.
	Unresolved bool `json:"unresolved,omitempty"`
}

// GateReason explains a delivery-gate decision.
type GateReason string

const (
	GateOK               GateReason = "ok"
	GateDisabled         GateReason = "disabled"
	GatePermissionDenied GateReason = "permission_denied"
	GateSameLocalDay     GateReason = "same_local_day"
	GateSpacingNotMet    GateReason = "spacing_not_elapsed"
	GateInsideQuietHours GateReason = "inside_quiet_hours"
)

// GateDecision is the fire-time verdict on whether a reminder may be shown.
type GateDecision struct {
	Allowed bool       `json:"allowed"`
	Reason  GateReason `json:"reason"`
}

// PermissionStatus is the OS notification permission state. Modeled as an
// enum, never an error.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// NotificationKind identifies this subsystem's notifications among all of
// the app's notifications.
const NotificationKind = "expense_log_reminder"

// DeepLinkAddExpense is the fixed deep link carried by every reminder.
const DeepLinkAddExpense = "/transactions/add?type=expense"

// Payload is the notification payload contract.
type Payload struct {
	Kind             string `json:"kind"`
	DeepLink         string `json:"deepLink"`
	IsTest           bool   `json:"isTest"`
	TestCountsAsReal bool   `json:"testCountsAsReal,omitempty"`
}

// ReminderPayload returns the payload for a real scheduled reminder.
func ReminderPayload() Payload {
	return Payload{Kind: NotificationKind, DeepLink: DeepLinkAddExpense}
}

// TestPayload returns the payload for a manually triggered test reminder.
// When countAsReal is set, the fire-time handler treats it as a real
// delivery (gate evaluation, delivery record update).
func TestPayload(countAsReal bool) Payload {
	return Payload{
		Kind:             NotificationKind,
		DeepLink:         DeepLinkAddExpense,
		IsTest:           true,
		TestCountsAsReal: countAsReal,
	}
}

// ScheduledSlot is one pending platform notification. The single-slot
// invariant says at most one non-test slot of NotificationKind exists at
// any time.
type ScheduledSlot struct {
	ID      string    `json:"id"`
	FireAt  time.Time `json:"fire_at"`
	Payload Payload   `json:"payload"`
}
