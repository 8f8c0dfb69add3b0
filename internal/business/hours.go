package business

import (
	"fmt"
	"time"
)

// DayHours represents the opening hours for a single day in 24-hour "15:04" form.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// BusinessHours maps weekdays to hours. Nil means closed that day.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// DefaultHours is used when a tenant has not configured any hours.
func DefaultHours() BusinessHours {
	weekday := func() *DayHours { return &DayHours{Open: "09:00", Close: "17:00"} }
	return BusinessHours{
		Monday:    weekday(),
		Tuesday:   weekday(),
		Wednesday: weekday(),
		Thursday:  weekday(),
		Friday:    weekday(),
	}
}

// ForDay returns the hours for a given weekday.
func (b BusinessHours) ForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// IsZero reports whether no day has hours configured.
func (b BusinessHours) IsZero() bool {
	return b.Sunday == nil && b.Monday == nil && b.Tuesday == nil &&
		b.Wednesday == nil && b.Thursday == nil && b.Friday == nil && b.Saturday == nil
}

// Window returns the open interval for the calendar day containing day, in loc.
// ok is false when the business is closed that day.
func (b BusinessHours) Window(day time.Time, loc *time.Location) (start, end time.Time, ok bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	hours := b
	if hours.IsZero() {
		hours = DefaultHours()
	}
	local := day.In(loc)
	dh := hours.ForDay(local.Weekday())
	if dh == nil {
		return time.Time{}, time.Time{}, false, nil
	}
	openAt, err := time.Parse("15:04", dh.Open)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("business: parse open %q: %w", dh.Open, err)
	}
	closeAt, err := time.Parse("15:04", dh.Close)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("business: parse close %q: %w", dh.Close, err)
	}
	y, m, d := local.Date()
	start = time.Date(y, m, d, openAt.Hour(), openAt.Minute(), 0, 0, loc)
	end = time.Date(y, m, d, closeAt.Hour(), closeAt.Minute(), 0, 0, loc)
	if !end.After(start) {
		return time.Time{}, time.Time{}, false, nil
	}
	return start, end, true, nil
}
