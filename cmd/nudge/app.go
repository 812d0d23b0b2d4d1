package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendnote/nudge/pkg/clock"
	"github.com/spendnote/nudge/pkg/config"
	"github.com/spendnote/nudge/pkg/orchestrator"
	"github.com/spendnote/nudge/pkg/platform"
	"github.com/spendnote/nudge/pkg/store"
)

// app holds shared state for all CLI subcommands.
type app struct {
	cfg      config.Config
	store    *store.Store
	platform *platform.Local
	log      zerolog.Logger
}

// newApp loads configuration and opens the database. Creates the .nudge/
// directory when using the default DB path.
func newApp() (*app, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", cfg.DBPath, err)
	}

	logger := newLogger(cfg.LogLevel)
	return &app{
		cfg:      cfg,
		store:    s,
		platform: platform.NewLocal(s, logger),
		log:      logger,
	}, nil
}

// Close releases the database connection.
func (a *app) Close() { a.store.Close() }

// orchestrator wires an orchestrator around the given clock and runs its
// one-time initialization. Commands that accept --now pass a fixed clock
// so the whole decision pipeline sees the overridden instant.
func (a *app) orchestrator(clk clock.Clock) *orchestrator.Orchestrator {
	o := orchestrator.New(a.store, a.platform, clk, a.log)
	o.Initialize()
	return o
}

// resolveClock returns a fixed clock when nowFlag is set, the system clock
// otherwise.
func (a *app) resolveClock(nowFlag string) (clock.Clock, error) {
	if nowFlag == "" {
		return clock.System{}, nil
	}
	t, err := parseInstant(nowFlag)
	if err != nil {
		return nil, err
	}
	return clock.NewFixed(t), nil
}

// parseInstant accepts RFC 3339 or a local "2006-01-02T15:04[:05]" string.
func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (want RFC 3339 or 2006-01-02T15:04)", s)
}

// newLogger builds a console logger on stderr so log lines never mix with
// a command's primary stdout output.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
