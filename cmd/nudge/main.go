// Command nudge is the spending-reminder scheduling engine CLI.
//
// It decides when the single recurring "log your spending" notification
// should fire, enforcing a one-per-day cap, a quiet-hours window, and a
// minimum spacing between deliveries, and it self-heals the pending slot
// across restarts and permission changes.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("nudge", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	// Setup
	case "init":
		os.Exit(a.cmdInit(os.Args[2:]))

	// Lifecycle
	case "enable":
		os.Exit(a.cmdEnable(os.Args[2:]))
	case "disable":
		os.Exit(a.cmdDisable(os.Args[2:]))
	case "schedule":
		os.Exit(a.cmdSchedule(os.Args[2:]))
	case "cancel":
		os.Exit(a.cmdCancel(os.Args[2:]))
	case "check":
		os.Exit(a.cmdCheck(os.Args[2:]))

	// Inspection & simulation
	case "status":
		os.Exit(a.cmdStatus(os.Args[2:]))
	case "next":
		os.Exit(a.cmdNext(os.Args[2:]))
	case "fire":
		os.Exit(a.cmdFire(os.Args[2:]))
	case "test":
		os.Exit(a.cmdTestNotify(os.Args[2:]))

	// Configuration
	case "set":
		os.Exit(a.cmdSet(os.Args[2:]))
	case "grant":
		os.Exit(a.cmdPermission(os.Args[2:], "grant"))
	case "deny":
		os.Exit(a.cmdPermission(os.Args[2:], "deny"))
	case "revoke":
		os.Exit(a.cmdPermission(os.Args[2:], "revoke"))

	default:
		fmt.Fprintf(os.Stderr, "nudge: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'nudge --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`nudge — spending-reminder scheduling engine

One pending reminder slot. One delivery per local day. Quiet hours are
never violated. Every fire event is re-validated against current settings.

Usage:
  nudge <command> [flags]

Setup:
  init                      Create the database, seed the default policy

Lifecycle:
  enable                    Turn reminders on (requests OS permission)
  disable                   Turn reminders off, cancel the pending slot
  schedule [--reason s]     Cancel-then-schedule the next eligible reminder
  cancel [--reason s]       Cancel all pending non-test reminders
  check [--source s]        Reconcile drift (run on app foreground)

Inspection & simulation:
  status                    Policy, delivery record, permission, pending slot
  next [--now t]            Dry-run the eligibility computation
  fire [--now t]            Fire due notifications through the delivery gate
  test [--count-as-real]    Schedule a test reminder (bypasses the gate)

Configuration:
  set [--time HH:MM] [--quiet-start HH:MM] [--quiet-end HH:MM]
      [--clear-quiet] [--spacing N]
  grant | deny | revoke     Simulate the OS permission state

Environment:
  NUDGE_DB         SQLite database path (default: .nudge/nudge.db)
  NUDGE_CONFIG     YAML config path (default: .nudge/config.yaml)
  NUDGE_LOG_LEVEL  zerolog level (default: warn)

All commands support --json for machine-readable output.
Time arguments (--now) accept RFC 3339 or "2006-01-02T15:04" local time.

Exit codes:
  0  success
  1  error
  2  blocked (gate suppressed delivery, permission denied, or disabled)
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "nudge: "+format+"\n", args...)
	os.Exit(1)
}
