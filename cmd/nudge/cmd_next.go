package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spendnote/nudge/pkg/eligibility"
)

// cmdNext dry-runs the eligibility computation against current settings.
// Pure: no writes, no platform calls. --now pins the computation instant.
func (a *app) cmdNext(args []string) int {
	flags := flag.NewFlagSet("next", flag.ContinueOnError)
	nowFlag := flags.String("now", "", "compute relative to this instant")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	now := time.Now()
	if *nowFlag != "" {
		t, err := parseInstant(*nowFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "nudge: next: %v\n", err)
			return 1
		}
		now = t
	}

	policy, err := a.store.Policy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: next: %v\n", err)
		return 1
	}
	rec, err := a.store.DeliveryRecord()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: next: %v\n", err)
		return 1
	}

	res := eligibility.ComputeNextEligibleReminder(now, policy, rec)

	if *jsonOut {
		printJSON(res)
		return 0
	}

	fmt.Printf("next eligible: %s (%s)\n",
		res.CandidateLocal.Format("2006-01-02 15:04"), res.CandidateLocalDate)
	if res.QuietHoursAdjusted {
		fmt.Println("  quiet-hours adjusted")
	}
	if res.MinimumSpacingApplied {
		fmt.Println("  minimum spacing applied")
	}
	if res.DailyGateApplied {
		fmt.Println("  daily gate applied")
	}
	if res.Unresolved {
		fmt.Println("  WARNING: policy did not converge; candidate is best-effort")
	}
	return 0
}
