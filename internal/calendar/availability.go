package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/cloudgreet-receptionist/internal/appointments"
	"github.com/wolfman30/cloudgreet-receptionist/internal/business"
)

const (
	// SlotStep is the spacing between candidate slot starts.
	SlotStep = 30 * time.Minute
	// LookaheadDays is the range searched when no date is requested.
	LookaheadDays = 7
	fallbackDays  = 3
)

var fallbackHours = []int{10, 14}

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// AvailableSlots returns slot start times within [windowStart, windowEnd) where a booking of
// length duration would not overlap any busy interval. Slots before now are skipped.
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) || windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// FallbackSlots returns fixed suggestions: the next three days starting tomorrow
// at 10:00 and 14:00 in loc.
func FallbackSlots(now time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()
	slots := make([]time.Time, 0, fallbackDays*len(fallbackHours))
	for i := 1; i <= fallbackDays; i++ {
		for _, h := range fallbackHours {
			slots = append(slots, time.Date(y, m, d+i, h, 0, 0, 0, loc))
		}
	}
	return slots
}

// AppointmentLister reads stored appointments for a business.
type AppointmentLister interface {
	ListBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error)
}

// BusySource reports external busy periods.
type BusySource interface {
	BusyIntervals(ctx context.Context, conn *business.CalendarConnection, from, to time.Time) ([]Interval, error)
}

// Calculator derives open slots from business hours, stored appointments and
// the connected calendar.
type Calculator struct {
	appts AppointmentLister
	busy  BusySource
	now   func() time.Time
}

// NewCalculator wires a calculator. busy may be nil when no calendar provider is configured.
func NewCalculator(appts AppointmentLister, busy BusySource) *Calculator {
	if appts == nil {
		panic("calendar: appointment lister required")
	}
	return &Calculator{appts: appts, busy: busy, now: time.Now}
}

// WithClock overrides the time source.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	if now != nil {
		c.now = now
	}
	return c
}

// Now returns the calculator's current time.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// OpenSlots returns the open slot starts for the business-local day containing day.
func (c *Calculator) OpenSlots(ctx context.Context, biz *business.Business, day time.Time, duration time.Duration) ([]time.Time, error) {
	if biz == nil {
		return nil, business.ErrNotFound
	}
	loc := biz.Location()
	windowStart, windowEnd, open, err := biz.Hours.Window(day, loc)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, nil
	}

	stored, err := c.appts.ListBetween(ctx, biz.ID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("calendar: load appointments: %w", err)
	}
	busy := make([]Interval, 0, len(stored))
	for _, appt := range stored {
		if appt.Blocks() {
			busy = append(busy, Interval{Start: appt.StartTime, End: appt.EndTime})
		}
	}

	if c.busy != nil && biz.HasCalendar() {
		external, err := c.busy.BusyIntervals(ctx, biz.Calendar, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		busy = append(busy, external...)
	}

	return AvailableSlots(windowStart, windowEnd, duration, SlotStep, busy, c.now()), nil
}

// Upcoming concatenates open slots for the next LookaheadDays days starting tomorrow.
func (c *Calculator) Upcoming(ctx context.Context, biz *business.Business, duration time.Duration) ([]time.Time, error) {
	if biz == nil {
		return nil, business.ErrNotFound
	}
	loc := biz.Location()
	y, m, d := c.now().In(loc).Date()
	var out []time.Time
	for i := 1; i <= LookaheadDays; i++ {
		slots, err := c.OpenSlots(ctx, biz, time.Date(y, m, d+i, 12, 0, 0, 0, loc), duration)
		if err != nil {
			return nil, err
		}
		out = append(out, slots...)
	}
	return out, nil
}
