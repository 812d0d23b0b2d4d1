package store

import (
	"errors"
	"testing"
	"time"
)

func TestIsTransientSQLiteErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", errors.New("SQLITE_BUSY: database is busy (5)"), true},
		{"locked", errors.New("SQLITE_LOCKED (6)"), true},
		{"short read", errors.New("disk I/O error: IOERR_SHORT_READ (522)"), true},
		{"locked text", errors.New("database is locked"), true},
		{"table locked text", errors.New("database table is locked"), true},
		{"constraint", errors.New("UNIQUE constraint failed: settings.key"), false},
		{"plain", errors.New("no such table: settings"), false},
	}
	for _, tc := range cases {
		if got := isTransientSQLiteErr(tc.err); got != tc.want {
			t.Errorf("%s: isTransientSQLiteErr = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryOpSucceedsAfterTransientErrors(t *testing.T) {
	cfg := retryConfig{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}

	attempts := 0
	err := retryOp(cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("SQLITE_BUSY (5)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryOp: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryOpGivesUpAfterMaxRetries(t *testing.T) {
	cfg := retryConfig{maxRetries: 2, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}

	attempts := 0
	transient := errors.New("database is locked")
	err := retryOp(cfg, func() error {
		attempts++
		return transient
	})
	if err == nil {
		t.Fatal("retryOp should surface the last error")
	}
	if attempts != 3 { // initial attempt + 2 retries
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryOpNonTransientReturnsImmediately(t *testing.T) {
	cfg := retryConfig{maxRetries: 5, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}

	attempts := 0
	fatal := errors.New("no such table: settings")
	err := retryOp(cfg, func() error {
		attempts++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("got %v, want the original error", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retries for non-transient errors)", attempts)
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	cfg := retryConfig{maxRetries: 4, baseDelay: 50 * time.Millisecond, maxDelay: 150 * time.Millisecond}

	for attempt := 0; attempt < 5; attempt++ {
		d := backoffDelay(cfg, attempt)
		if d < cfg.baseDelay {
			t.Errorf("attempt %d: delay %v below base", attempt, d)
		}
		// Capped exponential plus at most baseDelay of jitter.
		if max := cfg.maxDelay + cfg.baseDelay; d > max {
			t.Errorf("attempt %d: delay %v exceeds cap %v", attempt, d, max)
		}
	}
}
