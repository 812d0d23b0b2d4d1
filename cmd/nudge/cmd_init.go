package main

import (
	"flag"
	"fmt"
	"os"
)

// cmdInit creates the database and seeds the reminder policy from the
// config file (or defaults). Re-running init re-applies the config seeds;
// it never touches the delivery record or the pending slot.
func (a *app) cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if err := a.store.SetPreferredTime(a.cfg.PreferredTime); err != nil {
		fmt.Fprintf(os.Stderr, "nudge: init: preferred time: %v\n", err)
		return 1
	}
	if err := a.store.SetQuietHours(a.cfg.QuietHoursStart, a.cfg.QuietHoursEnd); err != nil {
		fmt.Fprintf(os.Stderr, "nudge: init: quiet hours: %v\n", err)
		return 1
	}
	if err := a.store.SetMinimumSpacingHours(a.cfg.MinimumSpacingHours); err != nil {
		fmt.Fprintf(os.Stderr, "nudge: init: spacing: %v\n", err)
		return 1
	}

	policy, err := a.store.Policy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: init: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"db":     a.cfg.DBPath,
			"policy": policy,
		})
		return 0
	}

	fmt.Printf("initialized nudge (db: %s)\n", a.cfg.DBPath)
	fmt.Printf("  preferred time: %s\n", policy.PreferredTime)
	if policy.QuietHours.Enabled() {
		fmt.Printf("  quiet hours:    %s–%s\n", policy.QuietHours.Start, policy.QuietHours.End)
	} else {
		fmt.Println("  quiet hours:    off")
	}
	fmt.Printf("  spacing:        %dh\n", policy.MinimumSpacingHours)
	fmt.Println()
	fmt.Println("next steps:")
	fmt.Println("  nudge enable   # request permission and schedule")
	fmt.Println("  nudge status   # inspect the pending slot")
	return 0
}
