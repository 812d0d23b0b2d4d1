package orchestrator

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendnote/nudge/pkg/clock"
	"github.com/spendnote/nudge/pkg/model"
	"github.com/spendnote/nudge/pkg/platform"
	"github.com/spendnote/nudge/pkg/store"
)

// fixture wires an orchestrator over a real SQLite settings store, the
// in-memory platform fake, and a pinned clock.
type fixture struct {
	orch  *Orchestrator
	store *store.Store
	plat  *platform.Memory
	clk   *clock.Fixed
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	p := platform.NewMemory()
	clk := clock.NewFixed(now)
	return &fixture{
		orch:  New(s, p, clk, zerolog.Nop()),
		store: s,
		plat:  p,
		clk:   clk,
	}
}

func jan(d, h, m int) time.Time {
	return time.Date(2024, 1, d, h, m, 0, 0, time.UTC)
}

func (f *fixture) seedPolicy(t *testing.T, preferred string) {
	t.Helper()
	if err := f.store.SetPreferredTime(preferred); err != nil {
		t.Fatalf("SetPreferredTime: %v", err)
	}
}

func (f *fixture) realPending() []model.ScheduledSlot {
	var out []model.ScheduledSlot
	for _, s := range f.plat.Pending() {
		if s.Payload.Kind == model.NotificationKind && !s.Payload.IsTest {
			out = append(out, s)
		}
	}
	return out
}

func TestInitializeRegistersChannelOnce(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.orch.Initialize()
	f.orch.Initialize()
	f.orch.Initialize()
	if f.plat.ChannelCalls != 1 {
		t.Errorf("ChannelCalls = %d, want 1", f.plat.ChannelCalls)
	}
}

func TestInitializeRetriesAfterChannelFailure(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.plat.ErrChannel = errors.New("channel registration unavailable")

	// Each call while registration keeps failing retries it.
	f.orch.Initialize()
	f.orch.Initialize()
	if f.plat.ChannelCalls != 2 {
		t.Fatalf("ChannelCalls = %d, want 2 while failing", f.plat.ChannelCalls)
	}

	// After the platform recovers, the next call succeeds and later calls
	// are no-ops.
	f.plat.ErrChannel = nil
	f.orch.Initialize()
	f.orch.Initialize()
	if f.plat.ChannelCalls != 3 {
		t.Errorf("ChannelCalls = %d, want 3 after success", f.plat.ChannelCalls)
	}
}

func TestEnableWithGrantSchedulesOneSlot(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.RequestResult = model.PermissionGranted

	res := f.orch.SetEnabledAndReschedule(true)
	if res == nil {
		t.Fatal("expected an eligibility result")
	}
	if want := jan(1, 9, 0); !res.CandidateLocal.Equal(want) {
		t.Errorf("candidate = %v, want %v", res.CandidateLocal, want)
	}

	pending := f.realPending()
	if len(pending) != 1 {
		t.Fatalf("got %d pending slots, want 1", len(pending))
	}
	if !pending[0].FireAt.Equal(jan(1, 9, 0)) {
		t.Errorf("slot fires at %v, want 09:00", pending[0].FireAt)
	}

	if enabled, _ := f.store.RemindersEnabled(); !enabled {
		t.Error("enablement flag not persisted")
	}
	if perm, _ := f.store.PermissionStatus(); perm != model.PermissionGranted {
		t.Errorf("permission snapshot = %v, want granted", perm)
	}
	next, _ := f.store.NextScheduledAt()
	if next == nil || !next.Equal(jan(1, 9, 0)) {
		t.Errorf("next scheduled at = %v, want 09:00", next)
	}
}

func TestEnableWithDenialFailsClosed(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.RequestResult = model.PermissionDenied

	if res := f.orch.SetEnabledAndReschedule(true); res != nil {
		t.Fatalf("expected nil result on denial, got %+v", res)
	}

	if enabled, _ := f.store.RemindersEnabled(); enabled {
		t.Error("denial must force the enablement flag back off")
	}
	if perm, _ := f.store.PermissionStatus(); perm != model.PermissionDenied {
		t.Errorf("permission snapshot = %v, want denied", perm)
	}
	if len(f.realPending()) != 0 {
		t.Error("no slot may remain pending after fail-closed disable")
	}
	if next, _ := f.store.NextScheduledAt(); next != nil {
		t.Errorf("slot record not cleared: %v", next)
	}
}

func TestDisableCancelsPendingSlot(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.RequestResult = model.PermissionGranted
	f.orch.SetEnabledAndReschedule(true)

	f.orch.SetEnabledAndReschedule(false)

	if enabled, _ := f.store.RemindersEnabled(); enabled {
		t.Error("disable not persisted")
	}
	if len(f.realPending()) != 0 {
		t.Error("pending slot survived disable")
	}
	if next, _ := f.store.NextScheduledAt(); next != nil {
		t.Errorf("slot record not cleared: %v", next)
	}
}

func TestRepeatedSchedulingKeepsSingleSlot(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted
	f.plat.RequestResult = model.PermissionGranted
	if err := f.store.SetRemindersEnabled(true); err != nil {
		t.Fatalf("SetRemindersEnabled: %v", err)
	}

	for i := 0; i < 5; i++ {
		if res := f.orch.ScheduleNextEligibleReminder("settings_changed"); res == nil {
			t.Fatalf("iteration %d: expected a result", i)
		}
	}
	if got := len(f.realPending()); got != 1 {
		t.Fatalf("got %d pending slots after repeated scheduling, want 1", got)
	}
}

func TestCancelSweepSparesTestNotifications(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted
	if err := f.store.SetRemindersEnabled(true); err != nil {
		t.Fatalf("SetRemindersEnabled: %v", err)
	}

	testID, _ := f.orch.ScheduleTestNotification(false)
	if testID == "" {
		t.Fatal("test notification not scheduled")
	}
	f.orch.ScheduleNextEligibleReminder("settings_changed")

	var testSurvived bool
	for _, s := range f.plat.Pending() {
		if s.ID == testID {
			testSurvived = true
		}
	}
	if !testSurvived {
		t.Error("cancel sweep swallowed the test notification")
	}
	if got := len(f.realPending()); got != 1 {
		t.Errorf("got %d real slots, want 1", got)
	}
}

func TestHandleFiredPassThroughForOtherKinds(t *testing.T) {
	f := newFixture(t, jan(1, 9, 0))
	out := f.orch.HandleFired(model.ScheduledSlot{
		ID:      "other",
		Payload: model.Payload{Kind: "weekly_digest"},
	})
	if out.Action != ActionPassThrough {
		t.Errorf("action = %s, want pass_through", out.Action)
	}
	if n := f.orch.DrainOutcomes(); n != 0 {
		t.Errorf("pass-through must not emit outcomes, drained %d", n)
	}
}

func TestHandleFiredTestBypassesGate(t *testing.T) {
	// Engine disabled and permission denied: a real reminder would be
	// suppressed, a plain test is still shown.
	f := newFixture(t, jan(1, 9, 0))
	out := f.orch.HandleFired(model.ScheduledSlot{ID: "t1", Payload: model.TestPayload(false)})
	if out.Action != ActionShow {
		t.Errorf("action = %s, want show", out.Action)
	}
	if rec, _ := f.store.DeliveryRecord(); rec.LastDeliveredAt != nil {
		t.Error("plain test must not touch the delivery record")
	}
	if n := f.orch.DrainOutcomes(); n != 0 {
		t.Errorf("plain test must not emit outcomes, drained %d", n)
	}
}

func TestHandleFiredCountAsRealGoesThroughGate(t *testing.T) {
	f := newFixture(t, jan(1, 9, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted
	if err := f.store.SetRemindersEnabled(true); err != nil {
		t.Fatalf("SetRemindersEnabled: %v", err)
	}
	if err := f.store.SetPermissionStatus(model.PermissionGranted); err != nil {
		t.Fatalf("SetPermissionStatus: %v", err)
	}

	out := f.orch.HandleFired(model.ScheduledSlot{ID: "t1", Payload: model.TestPayload(true)})
	if out.Action != ActionShow || !out.Decision.Allowed {
		t.Fatalf("got %+v, want shown and allowed", out)
	}
	rec, _ := f.store.DeliveryRecord()
	if rec.LastDeliveredAt == nil {
		t.Error("count-as-real test must update the delivery record")
	}
}

func TestHandleFiredSuppressedByGate(t *testing.T) {
	// Fired while disabled: the stale notification must be suppressed and
	// an outcome emitted for the deferred reschedule.
	f := newFixture(t, jan(1, 9, 0))
	out := f.orch.HandleFired(model.ScheduledSlot{ID: "r1", Payload: model.ReminderPayload()})
	if out.Action != ActionSuppress {
		t.Fatalf("action = %s, want suppress", out.Action)
	}
	if out.Decision.Reason != model.GateDisabled {
		t.Errorf("reason = %s, want disabled", out.Decision.Reason)
	}
	if rec, _ := f.store.DeliveryRecord(); rec.LastDeliveredAt != nil {
		t.Error("suppressed fire must not record a delivery")
	}
	if n := f.orch.DrainOutcomes(); n != 1 {
		t.Errorf("drained %d outcomes, want 1", n)
	}
}

func TestHandleFiredDeliveryAndDeferredReschedule(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted
	f.plat.RequestResult = model.PermissionGranted
	f.orch.SetEnabledAndReschedule(true)

	// The OS fires the slot at its scheduled instant.
	f.clk.Set(jan(1, 9, 0))
	pending := f.realPending()
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}
	if err := f.plat.Cancel(pending[0].ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	out := f.orch.HandleFired(pending[0])
	if out.Action != ActionShow || !out.Decision.Allowed {
		t.Fatalf("got %+v, want shown and allowed", out)
	}

	rec, _ := f.store.DeliveryRecord()
	if rec.LastDeliveredAt == nil || !rec.LastDeliveredAt.Equal(jan(1, 9, 0)) {
		t.Errorf("LastDeliveredAt = %v, want 09:00", rec.LastDeliveredAt)
	}
	if rec.LastDeliveredLocalDate != "2024-01-01" {
		t.Errorf("LastDeliveredLocalDate = %q, want 2024-01-01", rec.LastDeliveredLocalDate)
	}

	// The deferred reschedule lands on the next day: the daily gate and
	// spacing floor both rule today out.
	if n := f.orch.DrainOutcomes(); n != 1 {
		t.Fatalf("drained %d outcomes, want 1", n)
	}
	pending = f.realPending()
	if len(pending) != 1 {
		t.Fatalf("got %d pending after reschedule, want 1", len(pending))
	}
	if want := jan(2, 9, 0); !pending[0].FireAt.Equal(want) {
		t.Errorf("next slot fires at %v, want %v", pending[0].FireAt, want)
	}
}

func TestHandleFiredUsesStoredPermissionSnapshot(t *testing.T) {
	// The OS-side state flips to denied after scheduling, but the stored
	// snapshot still says granted. The fire-time handler must consult the
	// snapshot only; reconciliation happens on the next runtime check.
	f := newFixture(t, jan(1, 9, 0))
	f.seedPolicy(t, "09:00")
	if err := f.store.SetRemindersEnabled(true); err != nil {
		t.Fatalf("SetRemindersEnabled: %v", err)
	}
	if err := f.store.SetPermissionStatus(model.PermissionGranted); err != nil {
		t.Fatalf("SetPermissionStatus: %v", err)
	}
	f.plat.Permission = model.PermissionDenied

	out := f.orch.HandleFired(model.ScheduledSlot{ID: "r1", Payload: model.ReminderPayload()})
	if out.Action != ActionShow {
		t.Errorf("action = %s, want show (snapshot says granted)", out.Action)
	}
}

func TestRuntimeGateCheckForceDisablesOnRevocation(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted
	f.plat.RequestResult = model.PermissionGranted
	f.orch.SetEnabledAndReschedule(true)

	// Permission revoked in OS settings while the app was not running.
	f.plat.Permission = model.PermissionDenied
	f.orch.RuntimeGateCheck("foreground")

	if enabled, _ := f.store.RemindersEnabled(); enabled {
		t.Error("revocation must force reminders off")
	}
	if perm, _ := f.store.PermissionStatus(); perm != model.PermissionDenied {
		t.Errorf("snapshot = %v, want denied", perm)
	}
	if len(f.realPending()) != 0 {
		t.Error("pending slot survived revocation")
	}
}

func TestRuntimeGateCheckReschedulesWhenHealthy(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted
	if err := f.store.SetRemindersEnabled(true); err != nil {
		t.Fatalf("SetRemindersEnabled: %v", err)
	}

	f.orch.RuntimeGateCheck("foreground")

	pending := f.realPending()
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}
	if !pending[0].FireAt.Equal(jan(1, 9, 0)) {
		t.Errorf("slot fires at %v, want 09:00", pending[0].FireAt)
	}
}

func TestScheduleErrorIsSwallowed(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted
	f.plat.ErrSchedule = errors.New("os scheduler unavailable")
	if err := f.store.SetRemindersEnabled(true); err != nil {
		t.Fatalf("SetRemindersEnabled: %v", err)
	}

	if res := f.orch.ScheduleNextEligibleReminder("settings_changed"); res != nil {
		t.Errorf("expected nil result on platform error, got %+v", res)
	}
	// The enablement flag is untouched; the next cycle retries.
	if enabled, _ := f.store.RemindersEnabled(); !enabled {
		t.Error("platform error must not flip enablement")
	}
}

func TestScheduleWhileDisabledIsNoop(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))
	f.seedPolicy(t, "09:00")
	f.plat.Permission = model.PermissionGranted

	if res := f.orch.ScheduleNextEligibleReminder("settings_changed"); res != nil {
		t.Errorf("expected nil result while disabled, got %+v", res)
	}
	if len(f.realPending()) != 0 {
		t.Error("nothing may be scheduled while disabled")
	}
}

func TestScheduleTestNotification(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))

	id, at := f.orch.ScheduleTestNotification(false)
	if id == "" {
		t.Fatal("expected a platform ID")
	}
	if want := jan(1, 8, 0).Add(testFireDelay); !at.Equal(want) {
		t.Errorf("fire instant = %v, want %v", at, want)
	}
	pending := f.plat.Pending()
	if len(pending) != 1 || !pending[0].Payload.IsTest {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}

func TestExtractDeepLink(t *testing.T) {
	f := newFixture(t, jan(1, 8, 0))

	link, ok := f.orch.ExtractDeepLink(model.ScheduledSlot{Payload: model.ReminderPayload()})
	if !ok || link != model.DeepLinkAddExpense {
		t.Errorf("got %q, %v; want %q, true", link, ok, model.DeepLinkAddExpense)
	}
	if _, ok := f.orch.ExtractDeepLink(model.ScheduledSlot{Payload: model.Payload{Kind: "weekly_digest"}}); ok {
		t.Error("other kinds must not yield a deep link")
	}
}
