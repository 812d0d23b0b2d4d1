package main

import (
	"flag"
	"fmt"

	"github.com/spendnote/nudge/pkg/clock"
)

// cmdSchedule runs one explicit cancel-then-schedule cycle. Exit code 2
// when nothing was scheduled (disabled or no permission).
func (a *app) cmdSchedule(args []string) int {
	flags := flag.NewFlagSet("schedule", flag.ContinueOnError)
	reason := flags.String("reason", "manual", "reason recorded in logs")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	res := a.orchestrator(clock.System{}).ScheduleNextEligibleReminder(*reason)

	if *jsonOut {
		printJSON(map[string]interface{}{"scheduled": res})
	} else if res != nil {
		fmt.Printf("scheduled for %s", res.CandidateLocal.Format("2006-01-02 15:04"))
		if res.QuietHoursAdjusted {
			fmt.Print(" (quiet-hours adjusted)")
		}
		if res.MinimumSpacingApplied {
			fmt.Print(" (spacing applied)")
		}
		if res.DailyGateApplied {
			fmt.Print(" (daily gate applied)")
		}
		fmt.Println()
	} else {
		fmt.Println("nothing scheduled (reminders disabled or permission missing)")
	}

	if res == nil {
		return 2
	}
	return 0
}

// cmdCancel cancels all pending non-test reminders and clears the slot.
func (a *app) cmdCancel(args []string) int {
	flags := flag.NewFlagSet("cancel", flag.ContinueOnError)
	reason := flags.String("reason", "manual", "reason recorded in logs")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	a.orchestrator(clock.System{}).CancelReminderSchedule(*reason)

	if *jsonOut {
		printJSON(map[string]interface{}{"cancelled": true})
	} else {
		fmt.Println("pending reminders cancelled")
	}
	return 0
}
