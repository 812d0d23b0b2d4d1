package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spendnote/nudge/pkg/clock"
	"github.com/spendnote/nudge/pkg/model"
)

// cmdPermission simulates the OS-side permission state for the local
// platform:
//
//	grant  — the user allowed notifications
//	deny   — the user dismissed the prompt with "don't allow"
//	revoke — permission withdrawn in OS settings, then reconciled
//
// grant and deny only move the OS-side state; the engine notices on its
// next scheduling or check cycle. revoke additionally runs the runtime
// check immediately, which is the path a real app takes on foreground.
func (a *app) cmdPermission(args []string, mode string) int {
	flags := flag.NewFlagSet(mode, flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	target := model.PermissionGranted
	if mode != "grant" {
		target = model.PermissionDenied
	}
	if err := a.store.SetOSPermission(target); err != nil {
		fmt.Fprintf(os.Stderr, "nudge: %s: %v\n", mode, err)
		return 1
	}

	if mode == "revoke" {
		a.orchestrator(clock.System{}).RuntimeGateCheck("permission_revoke")
	}

	enabled, _ := a.store.RemindersEnabled()
	if *jsonOut {
		printJSON(map[string]interface{}{
			"os_permission": target,
			"enabled":       enabled,
		})
	} else {
		fmt.Printf("OS permission set to %s\n", target)
		if mode == "revoke" && !enabled {
			fmt.Println("reminders forced off and pending slot cancelled")
		}
	}
	return 0
}
