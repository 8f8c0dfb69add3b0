package business

import (
	"testing"
	"time"
)

func TestWindowUsesConfiguredHours(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	hours := BusinessHours{Saturday: &DayHours{Open: "10:00", Close: "14:00"}}

	saturday := time.Date(2025, 6, 7, 0, 0, 0, 0, loc)
	start, end, ok, err := hours.Window(saturday, loc)
	if err != nil || !ok {
		t.Fatalf("expected open window, ok=%v err=%v", ok, err)
	}
	if start.Hour() != 10 || end.Hour() != 14 {
		t.Fatalf("unexpected window %s - %s", start, end)
	}

	monday := time.Date(2025, 6, 9, 0, 0, 0, 0, loc)
	if _, _, ok, _ := hours.Window(monday, loc); ok {
		t.Fatalf("expected closed on monday when only saturday configured")
	}
}

func TestWindowDefaultsWhenUnconfigured(t *testing.T) {
	var hours BusinessHours
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	start, end, ok, err := hours.Window(monday, time.UTC)
	if err != nil || !ok {
		t.Fatalf("expected default weekday hours")
	}
	if start.Hour() != 9 || end.Hour() != 17 {
		t.Fatalf("unexpected default window %s - %s", start, end)
	}

	sunday := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, _, ok, _ := hours.Window(sunday, time.UTC); ok {
		t.Fatalf("expected default hours closed on sunday")
	}
}

func TestWindowRejectsBadFormat(t *testing.T) {
	hours := BusinessHours{Monday: &DayHours{Open: "9am", Close: "17:00"}}
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if _, _, _, err := hours.Window(monday, time.UTC); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	biz := &Business{Timezone: "Mars/Olympus"}
	if biz.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	var nilBiz *Business
	if nilBiz.Location() != time.UTC || nilBiz.HasCalendar() || nilBiz.Billable() {
		t.Fatalf("nil business helpers should be safe")
	}
}
