package main

import (
	"flag"
	"fmt"

	"github.com/spendnote/nudge/pkg/clock"
)

// cmdTestNotify schedules a test reminder a couple of seconds out. Test
// notifications bypass the delivery gate at fire time and are invisible to
// the cancel sweeps, unless --count-as-real makes them behave like a real
// delivery.
func (a *app) cmdTestNotify(args []string) int {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	countAsReal := flags.Bool("count-as-real", false, "evaluate the gate and record the delivery")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	id, at := a.orchestrator(clock.System{}).ScheduleTestNotification(*countAsReal)
	if id == "" {
		fmt.Println("test notification could not be scheduled (see log)")
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"id":            id,
			"fire_at":       at,
			"count_as_real": *countAsReal,
		})
	} else {
		fmt.Printf("test reminder %s scheduled for %s\n", id, at.Local().Format("15:04:05"))
		fmt.Println("run 'nudge fire' after it is due")
	}
	return 0
}
