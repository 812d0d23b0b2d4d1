// Package orchestrator owns the single-slot reminder scheduling lifecycle.
//
// The orchestrator wires the pure eligibility calculator and delivery gate
// to the settings store and the notification platform. It is the only
// writer of the delivery record and the scheduled-slot state, and it
// enforces the single-slot invariant by cancelling every non-test reminder
// notification before scheduling a new one.
//
// Concurrency model: there is no in-process lock around platform calls.
// Independent triggers (a settings toggle and a foreground check landing
// close together) may race; because every invocation performs
// cancel-all-then-schedule-one, the last one to complete determines the
// final state and no invocation can leave more than one slot pending —
// idempotent convergence instead of mutual exclusion.
//
// The fire-time handler runs inside a platform-owned callback. It never
// calls back into the platform synchronously; instead it emits a
// DeliveryOutcome onto a channel consumed by Run, which performs the
// follow-up reschedule on its own goroutine.
//
// Failure semantics: permission denial is fail-closed (reminders forced
// off). Platform errors are logged with the triggering reason and
// swallowed; the next reconciliation cycle retries. Nothing here crashes
// its caller.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendnote/nudge/pkg/clock"
	"github.com/spendnote/nudge/pkg/eligibility"
	"github.com/spendnote/nudge/pkg/gate"
	"github.com/spendnote/nudge/pkg/model"
	"github.com/spendnote/nudge/pkg/platform"
	"github.com/spendnote/nudge/pkg/store"
)

// testFireDelay is how far in the future a test notification is scheduled.
const testFireDelay = 2 * time.Second

// FireAction tells the platform callback what to do with a fired
// notification.
type FireAction string

const (
	// ActionPassThrough: not this subsystem's notification; leave it alone.
	ActionPassThrough FireAction = "pass_through"
	// ActionShow: display the notification.
	ActionShow FireAction = "show"
	// ActionSuppress: do not display; the gate blocked it.
	ActionSuppress FireAction = "suppress"
)

// FireOutcome is the fire-time handler's verdict for one notification.
type FireOutcome struct {
	Action   FireAction         `json:"action"`
	Decision model.GateDecision `json:"decision"`
}

// DeliveryOutcome is emitted after every gated fire event and consumed by
// Run, which performs the deferred reschedule.
type DeliveryOutcome struct {
	Delivered bool
	Reason    model.GateReason
}

// Orchestrator drives the reminder scheduling state machine.
type Orchestrator struct {
	settings store.SettingsStore
	platform platform.Platform
	clock    clock.Clock
	log      zerolog.Logger

	initMu      sync.Mutex
	initialized bool

	// outcomes carries deferred reschedule requests out of the fire-time
	// handler. Buffered so the handler never blocks inside the platform
	// callback.
	outcomes chan DeliveryOutcome
}

// New wires an orchestrator. Call Initialize before any scheduling
// operation and run Run on a background goroutine to process deferred
// fire outcomes.
func New(settings store.SettingsStore, p platform.Platform, clk clock.Clock, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		settings: settings,
		platform: p,
		clock:    clk,
		log:      logger.With().Str("component", "orchestrator").Logger(),
		outcomes: make(chan DeliveryOutcome, 16),
	}
}

// Initialize performs the one-time channel registration. Idempotent: extra
// calls are no-ops once registration has succeeded, and a registration
// failure is logged and retried on the next call rather than treated as
// fatal.
func (o *Orchestrator) Initialize() {
	o.initMu.Lock()
	defer o.initMu.Unlock()
	if o.initialized {
		return
	}
	if err := o.platform.EnsureChannel(); err != nil {
		o.log.Error().Err(err).Msg("channel registration failed")
		return
	}
	o.initialized = true
}

// Run consumes deferred delivery outcomes until ctx is cancelled. Each
// outcome triggers a full recompute-and-reschedule on this goroutine,
// never inside the platform callback that produced it.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-o.outcomes:
			reason := "post_delivery"
			if !out.Delivered {
				reason = "post_block:" + string(out.Reason)
			}
			o.ScheduleNextEligibleReminder(reason)
		}
	}
}

// DrainOutcomes processes any queued delivery outcomes synchronously and
// returns how many it handled. The CLI uses this instead of Run: a short-
// lived process wants the deferred reschedule to happen before it exits.
func (o *Orchestrator) DrainOutcomes() int {
	n := 0
	for {
		select {
		case out := <-o.outcomes:
			reason := "post_delivery"
			if !out.Delivered {
				reason = "post_block:" + string(out.Reason)
			}
			o.ScheduleNextEligibleReminder(reason)
			n++
		default:
			return n
		}
	}
}

// SetEnabledAndReschedule applies the user's enablement toggle.
//
// Disabling cancels the pending slot and stops. Enabling requests OS
// permission; denial forces the enablement flag back off (fail-closed — a
// user-visible "on" switch with no permission would silently never fire)
// and cancels; grant proceeds to scheduling. Returns the eligibility
// result when a slot was scheduled, nil otherwise.
func (o *Orchestrator) SetEnabledAndReschedule(enabled bool) *model.EligibilityResult {
	if !enabled {
		if err := o.settings.SetRemindersEnabled(false); err != nil {
			o.log.Error().Err(err).Msg("persist disable")
		}
		o.CancelReminderSchedule("disabled")
		return nil
	}

	if err := o.settings.SetRemindersEnabled(true); err != nil {
		o.log.Error().Err(err).Msg("persist enable")
		return nil
	}

	perm, err := o.platform.RequestPermissions()
	if err != nil {
		o.log.Error().Err(err).Msg("permission request failed")
		perm = model.PermissionDenied // fail closed
	}
	if err := o.settings.SetPermissionStatus(perm); err != nil {
		o.log.Error().Err(err).Msg("persist permission")
	}

	if perm != model.PermissionGranted {
		o.log.Warn().Str("permission", string(perm)).Msg("permission not granted, forcing reminders off")
		if err := o.settings.SetRemindersEnabled(false); err != nil {
			o.log.Error().Err(err).Msg("persist fail-closed disable")
		}
		o.CancelReminderSchedule("permission_denied")
		return nil
	}

	return o.ScheduleNextEligibleReminder("enabled")
}

// ScheduleNextEligibleReminder recomputes eligibility and replaces the
// pending slot. The cancel sweep runs first so that even a racing
// invocation cannot leave two slots pending. Returns the eligibility
// result, or nil when nothing was scheduled (disabled, permission missing,
// or a platform error — all logged, none fatal).
func (o *Orchestrator) ScheduleNextEligibleReminder(reason string) *model.EligibilityResult {
	o.cancelPendingReminders(reason)

	enabled, err := o.settings.RemindersEnabled()
	if err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("read enablement")
		return nil
	}
	if !enabled {
		o.clearSlot(reason)
		return nil
	}

	// Re-sync permission from the OS; the stored snapshot may be stale.
	perm, err := o.platform.Permissions()
	if err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("permission query failed")
		return nil
	}
	if err := o.settings.SetPermissionStatus(perm); err != nil {
		o.log.Error().Err(err).Msg("persist permission")
	}
	if perm != model.PermissionGranted {
		o.log.Warn().Str("reason", reason).Str("permission", string(perm)).Msg("not scheduling without permission")
		o.clearSlot(reason)
		return nil
	}

	policy, err := o.settings.Policy()
	if err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("read policy")
		return nil
	}
	rec, err := o.settings.DeliveryRecord()
	if err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("read delivery record")
		return nil
	}

	res := eligibility.ComputeNextEligibleReminder(o.clock.Now(), policy, rec)
	if res.Unresolved {
		o.log.Warn().
			Str("reason", reason).
			Time("candidate", res.CandidateLocal).
			Msg("eligibility did not converge, scheduling best-effort candidate")
	}

	id, err := o.platform.ScheduleAt(model.ReminderPayload(), res.CandidateLocal)
	if err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("schedule failed")
		return nil
	}
	if err := o.settings.SetNextScheduledAt(&res.CandidateUTC); err != nil {
		o.log.Error().Err(err).Msg("persist next scheduled at")
	}

	o.log.Info().
		Str("reason", reason).
		Str("id", id).
		Time("fire_at", res.CandidateLocal).
		Bool("quiet_hours_adjusted", res.QuietHoursAdjusted).
		Bool("spacing_applied", res.MinimumSpacingApplied).
		Bool("daily_gate_applied", res.DailyGateApplied).
		Msg("reminder scheduled")
	return &res
}

// CancelReminderSchedule cancels every pending non-test reminder
// notification and clears the slot record.
func (o *Orchestrator) CancelReminderSchedule(reason string) {
	o.cancelPendingReminders(reason)
	o.clearSlot(reason)
	o.log.Info().Str("reason", reason).Msg("reminder schedule cancelled")
}

// cancelPendingReminders sweeps the platform's pending set and cancels
// every notification of our kind that is not a test. Test notifications
// are filtered out of every sweep so a manually triggered test is never
// swallowed by a real reschedule, and vice versa.
func (o *Orchestrator) cancelPendingReminders(reason string) {
	pending, err := o.platform.ListPending()
	if err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("list pending failed")
		return
	}
	for _, slot := range pending {
		if slot.Payload.Kind != model.NotificationKind || slot.Payload.IsTest {
			continue
		}
		if err := o.platform.Cancel(slot.ID); err != nil {
			o.log.Error().Err(err).Str("reason", reason).Str("id", slot.ID).Msg("cancel failed")
		}
	}
}

func (o *Orchestrator) clearSlot(reason string) {
	if err := o.settings.SetNextScheduledAt(nil); err != nil {
		o.log.Error().Err(err).Str("reason", reason).Msg("clear slot record")
	}
}

// HandleFired is the fire-time handler, invoked by the platform for every
// notification of this app, not just reminders.
//
// Notifications of other kinds pass through untouched. A plain test
// notification is shown without gate evaluation. Everything else goes
// through the delivery gate against the current settings snapshot: if
// blocked, display is suppressed; if allowed, the delivery record is
// updated and the slot cleared. Either way a DeliveryOutcome is emitted so
// the follow-up reschedule happens outside this callback.
func (o *Orchestrator) HandleFired(slot model.ScheduledSlot) FireOutcome {
	if slot.Payload.Kind != model.NotificationKind {
		return FireOutcome{Action: ActionPassThrough}
	}
	if slot.Payload.IsTest && !slot.Payload.TestCountsAsReal {
		o.log.Info().Str("id", slot.ID).Msg("test reminder fired")
		return FireOutcome{Action: ActionShow}
	}

	now := o.clock.Now()
	decision := o.evaluateGate(now)

	if !decision.Allowed {
		o.log.Info().
			Str("id", slot.ID).
			Str("blocked", string(decision.Reason)).
			Msg("delivery suppressed by gate")
		o.emit(DeliveryOutcome{Reason: decision.Reason})
		return FireOutcome{Action: ActionSuppress, Decision: decision}
	}

	if err := o.settings.RecordDelivery(now.UTC(), model.DateOf(now)); err != nil {
		o.log.Error().Err(err).Msg("persist delivery record")
	}
	o.clearSlot("delivered")
	o.log.Info().Str("id", slot.ID).Time("at", now).Msg("reminder delivered")
	o.emit(DeliveryOutcome{Delivered: true, Reason: model.GateOK})
	return FireOutcome{Action: ActionShow, Decision: decision}
}

// evaluateGate snapshots settings and runs the pure gate. The permission
// used is the stored snapshot, not a live OS query: the handler must stay
// synchronous and I/O-free inside the platform callback, and the snapshot
// is refreshed on every scheduling and reconciliation pass.
func (o *Orchestrator) evaluateGate(now time.Time) model.GateDecision {
	enabled, err := o.settings.RemindersEnabled()
	if err != nil {
		o.log.Error().Err(err).Msg("gate: read enablement")
		return model.GateDecision{Reason: model.GateDisabled}
	}
	perm, err := o.settings.PermissionStatus()
	if err != nil {
		o.log.Error().Err(err).Msg("gate: read permission")
		return model.GateDecision{Reason: model.GatePermissionDenied}
	}
	policy, err := o.settings.Policy()
	if err != nil {
		o.log.Error().Err(err).Msg("gate: read policy")
		return model.GateDecision{Reason: model.GateDisabled}
	}
	rec, err := o.settings.DeliveryRecord()
	if err != nil {
		o.log.Error().Err(err).Msg("gate: read delivery record")
		return model.GateDecision{Reason: model.GateDisabled}
	}
	return gate.Evaluate(now, policy, enabled, perm, rec)
}

func (o *Orchestrator) emit(out DeliveryOutcome) {
	select {
	case o.outcomes <- out:
	default:
		// A full queue means Run is far behind; dropping is safe because
		// every queued outcome triggers the same idempotent reschedule.
		o.log.Warn().Msg("outcome queue full, dropping")
	}
}

// RuntimeGateCheck reconciles drift. Called opportunistically (app
// foreground, CLI check): re-reads OS permission, force-disables and
// cancels if permission was revoked while reminders were on, and otherwise
// recomputes and reschedules. This is the self-healing path for
// "permission changed in OS settings while the app was not running".
func (o *Orchestrator) RuntimeGateCheck(source string) {
	perm, err := o.platform.Permissions()
	if err != nil {
		o.log.Error().Err(err).Str("source", source).Msg("runtime check: permission query failed")
		return
	}
	if err := o.settings.SetPermissionStatus(perm); err != nil {
		o.log.Error().Err(err).Msg("persist permission")
	}

	enabled, err := o.settings.RemindersEnabled()
	if err != nil {
		o.log.Error().Err(err).Str("source", source).Msg("runtime check: read enablement")
		return
	}

	if !enabled {
		o.CancelReminderSchedule("runtime_check_disabled:" + source)
		return
	}
	if perm != model.PermissionGranted {
		o.log.Warn().Str("source", source).Str("permission", string(perm)).
			Msg("permission revoked outside the app, forcing reminders off")
		if err := o.settings.SetRemindersEnabled(false); err != nil {
			o.log.Error().Err(err).Msg("persist fail-closed disable")
		}
		o.CancelReminderSchedule("permission_revoked:" + source)
		return
	}
	o.ScheduleNextEligibleReminder("runtime_check:" + source)
}

// ScheduleTestNotification schedules a short-delay test reminder. Test
// notifications bypass the gate at fire time unless countAsReal is set,
// and are invisible to the cancel sweeps. Returns the platform ID and fire
// instant, or ("", zero) on a platform error.
func (o *Orchestrator) ScheduleTestNotification(countAsReal bool) (string, time.Time) {
	at := o.clock.Now().Add(testFireDelay)
	id, err := o.platform.ScheduleAt(model.TestPayload(countAsReal), at)
	if err != nil {
		o.log.Error().Err(err).Msg("schedule test notification failed")
		return "", time.Time{}
	}
	o.log.Info().Str("id", id).Bool("count_as_real", countAsReal).Msg("test reminder scheduled")
	return id, at
}

// ExtractDeepLink returns the navigation path carried by a fired reminder
// notification, or ("", false) for notifications of other kinds.
func (o *Orchestrator) ExtractDeepLink(slot model.ScheduledSlot) (string, bool) {
	if slot.Payload.Kind != model.NotificationKind || slot.Payload.DeepLink == "" {
		return "", false
	}
	return slot.Payload.DeepLink, true
}
