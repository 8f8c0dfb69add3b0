package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/cloudgreet-receptionist/internal/appointments"
	"github.com/wolfman30/cloudgreet-receptionist/internal/business"
)

func TestAvailableSlots_Basic(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	now := day.Add(9*time.Hour + 31*time.Minute)
	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, nil, now)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected slot 09:45, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestAvailableSlots_DegenerateInputs(t *testing.T) {
	day := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	if got := AvailableSlots(day, day.Add(time.Hour), 0, SlotStep, nil, day); got != nil {
		t.Fatalf("expected nil for zero duration")
	}
	if got := AvailableSlots(day, day, time.Hour, SlotStep, nil, day); got != nil {
		t.Fatalf("expected nil for empty window")
	}
	if got := AvailableSlots(day, day.Add(30*time.Minute), time.Hour, SlotStep, nil, day); got != nil {
		t.Fatalf("expected nil when duration exceeds window")
	}
}

func TestFallbackSlots(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	slots := FallbackSlots(now, est)
	if len(slots) != 6 {
		t.Fatalf("expected 6 fallback slots, got %d", len(slots))
	}
	want := time.Date(2025, 6, 2, 10, 0, 0, 0, est)
	if !slots[0].Equal(want) {
		t.Fatalf("expected first fallback %s, got %s", want, slots[0])
	}
	if slots[1].Hour() != 14 || slots[5].Day() != 4 {
		t.Fatalf("unexpected fallback layout: %v", slots)
	}

	utc := FallbackSlots(now, nil)
	if utc[0].Location() != time.UTC {
		t.Fatalf("expected UTC fallback when location missing")
	}
}

type stubLister struct {
	appts []appointments.Appointment
	err   error
	calls int
}

func (s *stubLister) ListBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error) {
	s.calls++
	return s.appts, s.err
}

type stubBusy struct {
	intervals []Interval
	err       error
}

func (s *stubBusy) BusyIntervals(ctx context.Context, conn *business.CalendarConnection, from, to time.Time) ([]Interval, error) {
	return s.intervals, s.err
}

func TestCalculatorOpenSlotsExcludesBusy(t *testing.T) {
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	lister := &stubLister{appts: []appointments.Appointment{
		{StartTime: monday.Add(10 * time.Hour), EndTime: monday.Add(11 * time.Hour), Status: appointments.StatusScheduled},
		{StartTime: monday.Add(13 * time.Hour), EndTime: monday.Add(14 * time.Hour), Status: appointments.StatusCancelled},
	}}
	busy := &stubBusy{intervals: []Interval{{Start: monday.Add(15 * time.Hour), End: monday.Add(16 * time.Hour)}}}
	calc := NewCalculator(lister, busy).WithClock(func() time.Time { return monday.Add(-12 * time.Hour) })

	biz := &business.Business{ID: uuid.New(), Timezone: "UTC", Calendar: &business.CalendarConnection{CalendarID: "primary", AccessToken: "tok"}}
	slots, err := calc.OpenSlots(context.Background(), biz, monday, time.Hour)
	if err != nil {
		t.Fatalf("open slots: %v", err)
	}
	if len(slots) != 9 {
		t.Fatalf("expected 9 slots, got %d: %v", len(slots), slots)
	}
	for _, s := range slots {
		if s.Equal(monday.Add(10*time.Hour)) || s.Equal(monday.Add(15*time.Hour)) {
			t.Fatalf("busy slot %s returned", s)
		}
	}
	found := false
	for _, s := range slots {
		if s.Equal(monday.Add(13 * time.Hour)) {
			found = true
		}
	}
	if !found {
		t.Fatalf("cancelled appointment should not block 13:00")
	}
}

func TestCalculatorClosedDay(t *testing.T) {
	sunday := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lister := &stubLister{}
	calc := NewCalculator(lister, nil).WithClock(func() time.Time { return sunday.Add(-24 * time.Hour) })

	slots, err := calc.OpenSlots(context.Background(), &business.Business{ID: uuid.New()}, sunday, time.Hour)
	if err != nil {
		t.Fatalf("open slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected closed sunday, got %v", slots)
	}
	if lister.calls != 0 {
		t.Fatalf("expected no store reads on a closed day")
	}
}

func TestCalculatorPropagatesErrors(t *testing.T) {
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return monday.Add(-time.Hour) }
	biz := &business.Business{ID: uuid.New(), Calendar: &business.CalendarConnection{AccessToken: "tok"}}

	calc := NewCalculator(&stubLister{err: errors.New("db down")}, nil).WithClock(clock)
	if _, err := calc.OpenSlots(context.Background(), biz, monday, time.Hour); err == nil {
		t.Fatalf("expected store error")
	}

	calc = NewCalculator(&stubLister{}, &stubBusy{err: errors.New("google down")}).WithClock(clock)
	if _, err := calc.OpenSlots(context.Background(), biz, monday, time.Hour); err == nil {
		t.Fatalf("expected calendar error")
	}

	if _, err := calc.OpenSlots(context.Background(), nil, monday, time.Hour); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for nil business, got %v", err)
	}
}

func TestCalculatorUpcomingStartsTomorrow(t *testing.T) {
	sunday := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calc := NewCalculator(&stubLister{}, nil).WithClock(func() time.Time { return sunday })

	slots, err := calc.Upcoming(context.Background(), &business.Business{ID: uuid.New()}, time.Hour)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	// Monday through Friday, 15 one-hour starts between 09:00 and 16:00.
	if len(slots) != 75 {
		t.Fatalf("expected 75 slots, got %d", len(slots))
	}
	if !slots[0].Equal(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected first slot monday 09:00, got %s", slots[0])
	}
}
