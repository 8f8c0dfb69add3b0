package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an appointment id does not match a row.
var ErrNotFound = errors.New("appointment not found")

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// DefaultDuration is the fixed length of every booked appointment.
const DefaultDuration = 60 * time.Minute

// Appointment is a booking owned by exactly one business.
type Appointment struct {
	ID              uuid.UUID
	BusinessID      uuid.UUID
	CustomerName    string
	CustomerPhone   string
	ServiceType     string
	StartTime       time.Time
	EndTime         time.Time
	Status          Status
	CalendarEventID string
	InvoiceID       string
	CreatedAt       time.Time
}

// NewAppointment carries the fields written by the booking flow.
type NewAppointment struct {
	BusinessID    uuid.UUID
	CustomerName  string
	CustomerPhone string
	ServiceType   string
	StartTime     time.Time
	EndTime       time.Time
}

// Blocks reports whether the appointment occupies its time window.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}
