package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spendnote/nudge/pkg/clock"
)

// cmdSet updates the reminder policy. Time strings are validated before
// persistence — a malformed value changes nothing. If reminders are on,
// the slot is recomputed under the new policy.
func (a *app) cmdSet(args []string) int {
	flags := flag.NewFlagSet("set", flag.ContinueOnError)
	preferred := flags.String("time", "", "preferred delivery time (HH:MM)")
	quietStart := flags.String("quiet-start", "", "quiet hours start (HH:MM)")
	quietEnd := flags.String("quiet-end", "", "quiet hours end (HH:MM)")
	clearQuiet := flags.Bool("clear-quiet", false, "remove the quiet-hours window")
	spacing := flags.Int("spacing", -1, "minimum spacing between deliveries (hours)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	changed := false

	if *preferred != "" {
		if err := a.store.SetPreferredTime(*preferred); err != nil {
			fmt.Fprintf(os.Stderr, "nudge: set: %v\n", err)
			return 1
		}
		changed = true
	}

	switch {
	case *clearQuiet:
		if err := a.store.SetQuietHours("", ""); err != nil {
			fmt.Fprintf(os.Stderr, "nudge: set: %v\n", err)
			return 1
		}
		changed = true
	case *quietStart != "" || *quietEnd != "":
		if *quietStart == "" || *quietEnd == "" {
			fmt.Fprintln(os.Stderr, "nudge: set: --quiet-start and --quiet-end must be given together")
			return 1
		}
		if err := a.store.SetQuietHours(*quietStart, *quietEnd); err != nil {
			fmt.Fprintf(os.Stderr, "nudge: set: %v\n", err)
			return 1
		}
		changed = true
	}

	if *spacing >= 0 {
		if err := a.store.SetMinimumSpacingHours(*spacing); err != nil {
			fmt.Fprintf(os.Stderr, "nudge: set: %v\n", err)
			return 1
		}
		changed = true
	}

	if !changed {
		fmt.Fprintln(os.Stderr, "nudge: set: nothing to change (see 'nudge --help')")
		return 1
	}

	// A policy change invalidates the current slot.
	if enabled, _ := a.store.RemindersEnabled(); enabled {
		a.orchestrator(clock.System{}).ScheduleNextEligibleReminder("settings_changed")
	}

	policy, err := a.store.Policy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: set: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"policy": policy})
	} else {
		fmt.Printf("policy updated: preferred=%s spacing=%dh", policy.PreferredTime, policy.MinimumSpacingHours)
		if policy.QuietHours.Enabled() {
			fmt.Printf(" quiet=%s–%s", policy.QuietHours.Start, policy.QuietHours.End)
		}
		fmt.Println()
	}
	return 0
}
