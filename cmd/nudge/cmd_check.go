package main

import (
	"flag"
	"fmt"

	"github.com/spendnote/nudge/pkg/clock"
	"github.com/spendnote/nudge/pkg/model"
)

// cmdCheck runs the runtime reconciliation that the surrounding app would
// trigger on foreground: re-read OS permission, force-disable on
// revocation, otherwise recompute and reschedule. Exit code 2 when the
// check force-disabled reminders.
func (a *app) cmdCheck(args []string) int {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	source := flags.String("source", "cli", "source recorded in logs")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	enabledBefore, _ := a.store.RemindersEnabled()
	a.orchestrator(clock.System{}).RuntimeGateCheck(*source)

	enabled, _ := a.store.RemindersEnabled()
	perm, _ := a.store.PermissionStatus()
	next, _ := a.store.NextScheduledAt()
	revoked := enabledBefore && !enabled

	if *jsonOut {
		printJSON(map[string]interface{}{
			"enabled":           enabled,
			"permission":        perm,
			"next_scheduled_at": next,
			"force_disabled":    revoked,
		})
	} else {
		switch {
		case revoked:
			fmt.Println("permission revoked in OS settings — reminders forced off")
		case !enabled:
			fmt.Println("reminders are off, no slot pending")
		case next != nil:
			fmt.Printf("reconciled, next fire at %s\n", next.Local().Format("2006-01-02 15:04"))
		default:
			fmt.Println("reconciled, nothing pending")
		}
	}

	if revoked || (enabled && perm != model.PermissionGranted) {
		return 2
	}
	return 0
}
