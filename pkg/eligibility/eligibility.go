// Package eligibility computes the next instant a reminder should fire.
//
// The computation is a fixed-point iteration over three rules, not a
// three-stage pipeline: the spacing floor can push a candidate into quiet
// hours, and a daily-gate date shift changes which spacing and quiet-hours
// outcome applies. Each adjustment therefore re-validates the earlier rules,
// under a hard iteration ceiling as a safety valve against pathological
// policy combinations.
//
// Everything here is pure and deterministic: identical inputs always yield
// an identical result, and the result is always strictly in the future
// relative to the supplied now.
package eligibility

import (
	"time"

	"github.com/spendnote/nudge/pkg/model"
)

// maxDailyGateIterations bounds the daily-gate loop. Ten date shifts cover
// any realistic policy; hitting the ceiling marks the result Unresolved.
const maxDailyGateIterations = 10

// ComputeNextEligibleReminder returns the next instant at which a reminder
// should be scheduled, given the current instant, the delivery policy, and
// the last-delivery record.
//
// The candidate starts at the next occurrence of the preferred time-of-day
// strictly after now, then is adjusted forward — never backward — until it
// clears quiet hours, the minimum-spacing floor, and the one-per-local-day
// gate. If the rules cannot be jointly satisfied within the iteration
// ceiling, the best-effort candidate is returned with Unresolved set
// rather than silently returning a possibly-noncompliant instant.
func ComputeNextEligibleReminder(now time.Time, policy model.ReminderPolicy, rec model.DeliveryRecord) model.EligibilityResult {
	var res model.EligibilityResult

	candidate := nextOccurrence(now, policy.PreferredTime)
	candidate = applyQuietHours(candidate, policy.QuietHours, &res)
	candidate = applySpacing(candidate, policy, rec, &res)

	if rec.LastDeliveredLocalDate != "" {
		for i := 0; rec.LastDeliveredLocalDate == model.DateOf(candidate); i++ {
			if i == maxDailyGateIterations {
				res.Unresolved = true
				break
			}
			res.DailyGateApplied = true
			// Shift to the preferred time on the day after the current
			// candidate, then re-validate quiet hours and spacing in full.
			candidate = policy.PreferredTime.On(candidate.AddDate(0, 0, 1))
			candidate = applyQuietHours(candidate, policy.QuietHours, &res)
			candidate = applySpacing(candidate, policy, rec, &res)
		}
	}

	res.CandidateLocal = candidate
	res.CandidateUTC = candidate.UTC()
	res.CandidateLocalDate = model.DateOf(candidate)
	return res
}

// nextOccurrence returns the preferred time-of-day today if it is still
// strictly in the future, otherwise tomorrow.
func nextOccurrence(now time.Time, preferred model.LocalTime) time.Time {
	c := preferred.On(now)
	if !c.After(now) {
		c = preferred.On(now.AddDate(0, 0, 1))
	}
	return c
}

// applyQuietHours moves a candidate that falls inside the quiet-hours
// window forward to the window's end instant.
func applyQuietHours(candidate time.Time, q model.QuietHours, res *model.EligibilityResult) time.Time {
	if !q.Contains(candidate) {
		return candidate
	}
	res.QuietHoursAdjusted = true
	return q.EndInstant(candidate)
}

// applySpacing lifts the candidate to lastDeliveredAt + minimum spacing if
// it falls short, then re-applies quiet hours: the spacing floor can land
// inside the window.
func applySpacing(candidate time.Time, policy model.ReminderPolicy, rec model.DeliveryRecord, res *model.EligibilityResult) time.Time {
	if rec.LastDeliveredAt == nil {
		return candidate
	}
	floor := rec.LastDeliveredAt.In(candidate.Location()).Add(policy.Spacing())
	if candidate.Before(floor) {
		res.MinimumSpacingApplied = true
		candidate = applyQuietHours(floor, policy.QuietHours, res)
	}
	return candidate
}
