package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spendnote/nudge/pkg/orchestrator"
)

// cmdFire drains every due notification through the fire-time handler,
// simulating the OS delivering them. The handler's deferred reschedules
// are processed before the command exits. Exit code 2 when reminders were
// due but every one was suppressed by the gate.
func (a *app) cmdFire(args []string) int {
	flags := flag.NewFlagSet("fire", flag.ContinueOnError)
	nowFlag := flags.String("now", "", "fire as if the current instant were this")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	clk, err := a.resolveClock(*nowFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: fire: %v\n", err)
		return 1
	}
	orch := a.orchestrator(clk)

	due, err := a.platform.PopDue(clk.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "nudge: fire: %v\n", err)
		return 1
	}

	type fired struct {
		ID       string                   `json:"id"`
		Outcome  orchestrator.FireOutcome `json:"outcome"`
		DeepLink string                   `json:"deep_link,omitempty"`
	}
	var results []fired
	shown, suppressed := 0, 0

	for _, slot := range due {
		out := orch.HandleFired(slot)
		link, _ := orch.ExtractDeepLink(slot)
		results = append(results, fired{ID: slot.ID, Outcome: out, DeepLink: link})
		switch out.Action {
		case orchestrator.ActionShow:
			shown++
		case orchestrator.ActionSuppress:
			suppressed++
		}
	}

	// The handler defers rescheduling; a long-lived app would consume the
	// outcomes in Run. A CLI invocation drains them before exiting.
	orch.DrainOutcomes()

	if *jsonOut {
		printJSON(map[string]interface{}{
			"fired":      results,
			"shown":      shown,
			"suppressed": suppressed,
		})
	} else if len(due) == 0 {
		fmt.Println("nothing due")
	} else {
		for _, r := range results {
			switch r.Outcome.Action {
			case orchestrator.ActionShow:
				fmt.Printf("shown %s", r.ID)
				if r.DeepLink != "" {
					fmt.Printf(" -> %s", r.DeepLink)
				}
				fmt.Println()
			case orchestrator.ActionSuppress:
				fmt.Printf("suppressed %s (%s)\n", r.ID, r.Outcome.Decision.Reason)
			default:
				fmt.Printf("passed through %s\n", r.ID)
			}
		}
	}

	if suppressed > 0 && shown == 0 {
		return 2
	}
	return 0
}
