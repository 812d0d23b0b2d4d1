package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spendnote/nudge/pkg/clock"
	"github.com/spendnote/nudge/pkg/model"
)

// cmdEnable turns reminders on. Permission is requested from the OS; on
// denial the engine fails closed (the flag snaps back off) and the exit
// code is 2.
func (a *app) cmdEnable(args []string) int {
	flags := flag.NewFlagSet("enable", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	res := a.orchestrator(clock.System{}).SetEnabledAndReschedule(true)

	enabled, err := a.store.RemindersEnabled()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: enable: %v\n", err)
		return 1
	}
	perm, _ := a.store.PermissionStatus()

	if *jsonOut {
		printJSON(map[string]interface{}{
			"enabled":    enabled,
			"permission": perm,
			"scheduled":  res,
		})
	} else if res != nil {
		fmt.Printf("reminders enabled, next fire at %s\n",
			res.CandidateLocal.Format("2006-01-02 15:04"))
	} else if perm != model.PermissionGranted {
		fmt.Printf("permission %s — reminders forced off\n", perm)
	} else {
		fmt.Println("reminders enabled, nothing scheduled")
	}

	if !enabled {
		return 2
	}
	return 0
}

// cmdDisable turns reminders off and cancels the pending slot.
func (a *app) cmdDisable(args []string) int {
	flags := flag.NewFlagSet("disable", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	a.orchestrator(clock.System{}).SetEnabledAndReschedule(false)

	if *jsonOut {
		printJSON(map[string]interface{}{"enabled": false})
	} else {
		fmt.Println("reminders disabled, pending slot cancelled")
	}
	return 0
}
