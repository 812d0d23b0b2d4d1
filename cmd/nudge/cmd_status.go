package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spendnote/nudge/pkg/model"
)

// cmdStatus shows the full engine state: policy, enablement, permission
// (stored snapshot and live OS value), delivery record, slot record, and
// the platform's actual pending set.
func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	policy, err := a.store.Policy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: status: %v\n", err)
		return 1
	}
	enabled, _ := a.store.RemindersEnabled()
	storedPerm, _ := a.store.PermissionStatus()
	osPerm, _ := a.platform.Permissions()
	rec, _ := a.store.DeliveryRecord()
	next, _ := a.store.NextScheduledAt()
	pending, _ := a.platform.ListPending()

	if *jsonOut {
		printJSON(map[string]interface{}{
			"enabled":           enabled,
			"permission":        storedPerm,
			"os_permission":     osPerm,
			"policy":            policy,
			"delivery_record":   rec,
			"next_scheduled_at": next,
			"pending":           pending,
		})
		return 0
	}

	onOff := "off"
	if enabled {
		onOff = "on"
	}
	fmt.Printf("reminders: %s (permission: %s", onOff, storedPerm)
	if osPerm != storedPerm {
		fmt.Printf(", OS says %s", osPerm)
	}
	fmt.Println(")")

	fmt.Printf("policy: preferred=%s spacing=%dh", policy.PreferredTime, policy.MinimumSpacingHours)
	if policy.QuietHours.Enabled() {
		fmt.Printf(" quiet=%s–%s", policy.QuietHours.Start, policy.QuietHours.End)
	}
	fmt.Println()

	if rec.LastDeliveredAt != nil {
		fmt.Printf("last delivery: %s (%s)\n",
			rec.LastDeliveredAt.Local().Format("2006-01-02 15:04"), rec.LastDeliveredLocalDate)
	} else {
		fmt.Println("last delivery: never")
	}

	if next != nil {
		fmt.Printf("slot record: %s\n", next.Local().Format("2006-01-02 15:04"))
	} else {
		fmt.Println("slot record: none")
	}

	if len(pending) > 0 {
		fmt.Println("pending:")
		for _, slot := range pending {
			kind := "reminder"
			if slot.Payload.IsTest {
				kind = "test"
			}
			fmt.Printf("  %-38s %s at %s\n", slot.ID, kind,
				slot.FireAt.Local().Format("2006-01-02 15:04"))
		}
	} else {
		fmt.Println("pending: none")
	}

	warnDrift(enabled, storedPerm, osPerm, next, pending)
	return 0
}

// warnDrift points out states the next reconciliation cycle will repair.
func warnDrift(enabled bool, stored, osPerm model.PermissionStatus, next *time.Time, pending []model.ScheduledSlot) {
	real := 0
	for _, slot := range pending {
		if !slot.Payload.IsTest {
			real++
		}
	}
	switch {
	case enabled && osPerm != model.PermissionGranted:
		fmt.Println("note: permission missing at the OS — 'nudge check' will force reminders off")
	case osPerm != stored:
		fmt.Println("note: permission drifted from the stored snapshot — run 'nudge check'")
	case enabled && next != nil && real == 0:
		fmt.Println("note: slot record without a pending notification — run 'nudge check'")
	case real > 1:
		fmt.Println("note: more than one pending reminder — the next schedule sweep will collapse them")
	}
}
