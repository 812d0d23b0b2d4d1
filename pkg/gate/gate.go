// Package gate re-validates delivery eligibility at fire time.
//
// The platform may fire late (device asleep, battery optimization), the
// user may have changed settings since scheduling, or OS permission may
// have been revoked in the interim. The gate is therefore the authoritative
// correctness boundary: it re-derives the decision from current truth and
// never trusts the scheduling-time snapshot.
//
// Evaluation is synchronous and pure over a settings snapshot taken at call
// time — no blocking, no I/O.
package gate

import (
	"time"

	"github.com/spendnote/nudge/pkg/model"
)

// Evaluate decides whether a reminder firing at now may actually be shown.
// Checks short-circuit in a fixed order: enablement, OS permission, the
// one-per-local-day gate, minimum spacing, quiet hours. The first failing
// check names the reason; an enablement failure wins over everything else.
func Evaluate(now time.Time, policy model.ReminderPolicy, enabled bool, permission model.PermissionStatus, rec model.DeliveryRecord) model.GateDecision {
	if !enabled {
		return model.GateDecision{Reason: model.GateDisabled}
	}
	if permission != model.PermissionGranted {
		return model.GateDecision{Reason: model.GatePermissionDenied}
	}
	if rec.LastDeliveredLocalDate != "" && rec.LastDeliveredLocalDate == model.DateOf(now) {
		return model.GateDecision{Reason: model.GateSameLocalDay}
	}
	if rec.LastDeliveredAt != nil && now.Before(rec.LastDeliveredAt.Add(policy.Spacing())) {
		return model.GateDecision{Reason: model.GateSpacingNotMet}
	}
	if policy.QuietHours.Contains(now) {
		return model.GateDecision{Reason: model.GateInsideQuietHours}
	}
	return model.GateDecision{Allowed: true, Reason: model.GateOK}
}
