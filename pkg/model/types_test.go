package model

import (
	"errors"
	"testing"
	"time"
)

func lt(h, m int) LocalTime { return LocalTime{Hour: h, Minute: m} }

func ltp(h, m int) *LocalTime {
	v := lt(h, m)
	return &v
}

func TestParseLocalTime_Valid(t *testing.T) {
	cases := []struct {
		in   string
		want LocalTime
	}{
		{"00:00", lt(0, 0)},
		{"09:05", lt(9, 5)},
		{"12:30", lt(12, 30)},
		{"23:59", lt(23, 59)},
	}
	for _, tc := range cases {
		got, err := ParseLocalTime(tc.in)
		if err != nil {
			t.Fatalf("ParseLocalTime(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseLocalTime(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseLocalTime_Invalid(t *testing.T) {
	cases := []string{
		"", "9:00", "09:0", "09:000", "24:00", "23:60", "ab:cd",
		"09-00", "0900", " 9:00", "09:00 ", "-1:00",
	}
	for _, in := range cases {
		if _, err := ParseLocalTime(in); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Errorf("ParseLocalTime(%q): want ErrInvalidTimeFormat, got %v", in, err)
		}
	}
}

func TestLocalTime_String_ZeroPadded(t *testing.T) {
	if s := lt(7, 5).String(); s != "07:05" {
		t.Errorf("String() = %q, want 07:05", s)
	}
}

func TestLocalTime_On(t *testing.T) {
	day := time.Date(2024, 3, 15, 18, 45, 12, 99, time.UTC)
	got := lt(9, 30).On(day)
	want := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("On() = %v, want %v", got, want)
	}
}

func at(h, m int) time.Time {
	return time.Date(2024, 1, 10, h, m, 0, 0, time.UTC)
}

func TestQuietHours_Disabled(t *testing.T) {
	cases := []struct {
		name string
		q    QuietHours
	}{
		{"both absent", QuietHours{}},
		{"start absent", QuietHours{End: ltp(7, 0)}},
		{"end absent", QuietHours{Start: ltp(22, 0)}},
		{"degenerate", QuietHours{Start: ltp(9, 0), End: ltp(9, 0)}},
	}
	for _, tc := range cases {
		if tc.q.Enabled() {
			t.Errorf("%s: Enabled() = true, want false", tc.name)
		}
		if tc.q.Contains(at(9, 0)) {
			t.Errorf("%s: degenerate window must never contain any instant", tc.name)
		}
	}
}

func TestQuietHours_SameDayWindow(t *testing.T) {
	q := QuietHours{Start: ltp(13, 0), End: ltp(15, 0)}
	cases := []struct {
		h, m int
		want bool
	}{
		{12, 59, false},
		{13, 0, true}, // start boundary is inside
		{14, 30, true},
		{15, 0, false}, // end boundary is outside (half-open)
		{16, 0, false},
	}
	for _, tc := range cases {
		if got := q.Contains(at(tc.h, tc.m)); got != tc.want {
			t.Errorf("Contains(%02d:%02d) = %v, want %v", tc.h, tc.m, got, tc.want)
		}
	}
}

func TestQuietHours_CrossMidnightWindow(t *testing.T) {
	q := QuietHours{Start: ltp(22, 0), End: ltp(7, 0)}
	cases := []struct {
		h, m int
		want bool
	}{
		{21, 59, false},
		{22, 0, true}, // late side start boundary
		{23, 30, true},
		{0, 0, true},
		{6, 59, true},
		{7, 0, false}, // early side end boundary
		{12, 0, false},
	}
	for _, tc := range cases {
		if got := q.Contains(at(tc.h, tc.m)); got != tc.want {
			t.Errorf("Contains(%02d:%02d) = %v, want %v", tc.h, tc.m, got, tc.want)
		}
	}
}

func TestQuietHours_EndInstant_SameDay(t *testing.T) {
	q := QuietHours{Start: ltp(13, 0), End: ltp(15, 0)}
	got := q.EndInstant(at(13, 30))
	if want := at(15, 0); !got.Equal(want) {
		t.Errorf("EndInstant = %v, want %v", got, want)
	}
}

func TestQuietHours_EndInstant_CrossMidnightEarlySide(t *testing.T) {
	q := QuietHours{Start: ltp(22, 0), End: ltp(7, 0)}
	// 06:00 is on the early side: the window ends at 07:00 the same day.
	got := q.EndInstant(at(6, 0))
	if want := at(7, 0); !got.Equal(want) {
		t.Errorf("EndInstant = %v, want %v", got, want)
	}
}

func TestQuietHours_EndInstant_CrossMidnightLateSide(t *testing.T) {
	q := QuietHours{Start: ltp(22, 0), End: ltp(7, 0)}
	// 23:00 is on the late side: the window ends at 07:00 the next day.
	got := q.EndInstant(at(23, 0))
	want := time.Date(2024, 1, 11, 7, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndInstant = %v, want %v", got, want)
	}
}

func TestReminderPolicy_SpacingDefault(t *testing.T) {
	if got := (ReminderPolicy{}).Spacing(); got != 12*time.Hour {
		t.Errorf("zero policy Spacing() = %v, want 12h", got)
	}
	if got := (ReminderPolicy{MinimumSpacingHours: 6}).Spacing(); got != 6*time.Hour {
		t.Errorf("Spacing() = %v, want 6h", got)
	}
}

func TestDateOf(t *testing.T) {
	if got := DateOf(time.Date(2024, 2, 3, 23, 59, 0, 0, time.UTC)); got != "2024-02-03" {
		t.Errorf("DateOf = %q, want 2024-02-03", got)
	}
}

func TestPayloads(t *testing.T) {
	p := ReminderPayload()
	if p.Kind != NotificationKind || p.DeepLink != DeepLinkAddExpense || p.IsTest {
		t.Errorf("unexpected reminder payload: %+v", p)
	}
	tp := TestPayload(true)
	if !tp.IsTest || !tp.TestCountsAsReal {
		t.Errorf("unexpected test payload: %+v", tp)
	}
}
