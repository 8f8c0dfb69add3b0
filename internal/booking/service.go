// Package booking turns a voice-agent booking request into a stored appointment
// and runs the follow-up side effects.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/cloudgreet-receptionist/internal/appointments"
	"github.com/wolfman30/cloudgreet-receptionist/internal/billing"
	"github.com/wolfman30/cloudgreet-receptionist/internal/business"
	"github.com/wolfman30/cloudgreet-receptionist/internal/calendar"
	"github.com/wolfman30/cloudgreet-receptionist/internal/notify"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

var bookingTracer = otel.Tracer("cloudgreet.internal.booking")

// BusinessLookup resolves a tenant by its raw identifier.
type BusinessLookup interface {
	GetByString(ctx context.Context, raw string) (*business.Business, error)
}

// AppointmentStore persists appointments and their external references.
type AppointmentStore interface {
	Create(ctx context.Context, req appointments.NewAppointment) (*appointments.Appointment, error)
	AttachCalendarEvent(ctx context.Context, id uuid.UUID, eventID string) error
	AttachInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error
}

// CalendarMirror writes appointments to an external calendar.
type CalendarMirror interface {
	CreateEvent(ctx context.Context, conn *business.CalendarConnection, evt calendar.Event) (string, error)
}

// Invoicer charges the per-booking fee.
type Invoicer interface {
	IssueInvoice(ctx context.Context, req billing.InvoiceRequest) (string, error)
	PayInvoice(ctx context.Context, invoiceID string) (string, error)
}

// Notifier sends the customer and owner notifications.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, b notify.Booking) error
	NotifyOwner(ctx context.Context, b notify.Booking) error
	EmailEnabled() bool
}

// StepRecorder counts best-effort step outcomes.
type StepRecorder interface {
	ObserveBookingStep(step, outcome string)
}

// Request is a book_appointment call as received from the voice agent.
type Request struct {
	BusinessID    string
	CustomerName  string
	CustomerPhone string
	Service       string
	DateTime      string
}

// Config wires the booking service. Only Businesses and Appointments are required.
type Config struct {
	Businesses   BusinessLookup
	Appointments AppointmentStore
	Calendar     CalendarMirror
	Invoicer     Invoicer
	Notifier     Notifier
	Metrics      StepRecorder
	Logger       *logging.Logger
}

// Service books appointments.
type Service struct {
	businesses BusinessLookup
	appts      AppointmentStore
	calendar   CalendarMirror
	invoicer   Invoicer
	notifier   Notifier
	metrics    StepRecorder
	logger     *logging.Logger
}

// NewService constructs a booking service.
func NewService(cfg Config) *Service {
	if cfg.Businesses == nil {
		panic("booking: business lookup required")
	}
	if cfg.Appointments == nil {
		panic("booking: appointment store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		businesses: cfg.Businesses,
		appts:      cfg.Appointments,
		calendar:   cfg.Calendar,
		invoicer:   cfg.Invoicer,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Book validates the request, stores a scheduled appointment and then runs the
// calendar, billing, SMS and owner email steps. Step failures never fail the booking.
func (s *Service) Book(ctx context.Context, req Request) (*Result, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book_appointment")
	defer span.End()

	req = req.trimmed()
	if err := req.validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("cloudgreet.business_id", req.BusinessID))

	biz, err := s.businesses.GetByString(ctx, req.BusinessID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, business.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("booking: lookup business: %w", err)
	}

	start, err := ParseStart(req.DateTime, biz.Location())
	if err != nil {
		return nil, &ValidationError{Field: "datetime", Reason: "must be an RFC 3339 timestamp"}
	}

	appt, err := s.appts.Create(ctx, appointments.NewAppointment{
		BusinessID:    biz.ID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		ServiceType:   req.Service,
		StartTime:     start,
		EndTime:       start.Add(appointments.DefaultDuration),
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("appointment insert failed",
			"business_id", biz.ID.String(),
			"service", req.Service,
			"start", start.UTC().Format(time.RFC3339),
			"error", err,
		)
		return nil, fmt.Errorf("booking: store appointment: %w", err)
	}
	span.SetAttributes(attribute.String("cloudgreet.appointment_id", appt.ID.String()))
	s.logger.Info("appointment booked",
		"business_id", biz.ID.String(),
		"appointment_id", appt.ID.String(),
		"start", appt.StartTime.Format(time.RFC3339),
	)

	result := newResult(appt)
	s.run(result, StepCalendar, func() StepResult { return s.mirrorCalendar(ctx, biz, appt) })
	s.run(result, StepBilling, func() StepResult { return s.chargeFee(ctx, biz, appt) })
	view := bookingView(biz, appt)
	s.run(result, StepSMS, func() StepResult { return s.confirmCustomer(ctx, appt, view) })
	s.run(result, StepOwnerEmail, func() StepResult { return s.emailOwner(ctx, biz, view) })

	if failed := result.Failed(); len(failed) > 0 {
		span.SetAttributes(attribute.Int("cloudgreet.failed_steps", len(failed)))
	}
	return result, nil
}

// run executes one best-effort step. A panic is reported as a failed step so
// the remaining steps still run.
func (s *Service) run(result *Result, step Step, fn func() StepResult) {
	s.record(result, step, guard(step, fn))
}

func guard(step Step, fn func() StepResult) (res StepResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = StepResult{Status: StepFailed, Err: fmt.Errorf("booking: %s step panicked: %v", step, rec)}
		}
	}()
	return fn()
}

func (s *Service) record(result *Result, step Step, res StepResult) {
	result.Steps[step] = res
	if s.metrics != nil {
		s.metrics.ObserveBookingStep(string(step), string(res.Status))
	}
	if res.Status == StepFailed {
		s.logger.Warn("booking step failed",
			"step", string(step),
			"appointment_id", result.Appointment.ID.String(),
			"error", res.Err,
		)
	}
}

func (s *Service) mirrorCalendar(ctx context.Context, biz *business.Business, appt *appointments.Appointment) StepResult {
	if s.calendar == nil || !biz.HasCalendar() {
		return StepResult{Status: StepSkipped}
	}
	tz := strings.TrimSpace(biz.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	eventID, err := s.calendar.CreateEvent(ctx, biz.Calendar, calendar.Event{
		Summary:     fmt.Sprintf("%s - %s", appt.ServiceType, appt.CustomerName),
		Description: eventDescription(appt),
		Start:       appt.StartTime,
		End:         appt.EndTime,
		TimeZone:    tz,
	})
	if err != nil {
		return StepResult{Status: StepFailed, Err: err}
	}
	if err := s.appts.AttachCalendarEvent(ctx, appt.ID, eventID); err != nil {
		return StepResult{Status: StepFailed, Reference: eventID, Err: err}
	}
	appt.CalendarEventID = eventID
	return StepResult{Status: StepSucceeded, Reference: eventID}
}

func (s *Service) chargeFee(ctx context.Context, biz *business.Business, appt *appointments.Appointment) StepResult {
	if s.invoicer == nil || !biz.Billable() {
		return StepResult{Status: StepSkipped}
	}
	invoiceID, err := s.invoicer.IssueInvoice(ctx, billing.InvoiceRequest{
		CustomerID:    biz.StripeCustomerID,
		BusinessID:    biz.ID,
		AppointmentID: appt.ID,
		Description:   fmt.Sprintf("Booking fee: %s on %s", appt.ServiceType, appt.StartTime.In(biz.Location()).Format("Jan 2, 2006 3:04 PM")),
	})
	if err != nil {
		return StepResult{Status: StepFailed, Reference: invoiceID, Err: err}
	}
	if err := s.appts.AttachInvoice(ctx, appt.ID, invoiceID); err != nil {
		return StepResult{Status: StepFailed, Reference: invoiceID, Err: err}
	}
	appt.InvoiceID = invoiceID
	if _, err := s.invoicer.PayInvoice(ctx, invoiceID); err != nil {
		return StepResult{Status: StepFailed, Reference: invoiceID, Err: err}
	}
	return StepResult{Status: StepSucceeded, Reference: invoiceID}
}

func (s *Service) confirmCustomer(ctx context.Context, appt *appointments.Appointment, view notify.Booking) StepResult {
	if s.notifier == nil || appt.CustomerPhone == "" {
		return StepResult{Status: StepSkipped}
	}
	if err := s.notifier.SendBookingConfirmation(ctx, view); err != nil {
		return StepResult{Status: StepFailed, Err: err}
	}
	return StepResult{Status: StepSucceeded}
}

func (s *Service) emailOwner(ctx context.Context, biz *business.Business, view notify.Booking) StepResult {
	if s.notifier == nil || !s.notifier.EmailEnabled() || strings.TrimSpace(biz.OwnerEmail) == "" {
		return StepResult{Status: StepSkipped}
	}
	if err := s.notifier.NotifyOwner(ctx, view); err != nil {
		return StepResult{Status: StepFailed, Err: err}
	}
	return StepResult{Status: StepSucceeded}
}

func bookingView(biz *business.Business, appt *appointments.Appointment) notify.Booking {
	return notify.Booking{
		AppointmentID: appt.ID,
		BusinessName:  biz.DisplayName(),
		BusinessPhone: biz.PhoneNumber,
		OwnerEmail:    biz.OwnerEmail,
		CustomerName:  appt.CustomerName,
		CustomerPhone: appt.CustomerPhone,
		Service:       appt.ServiceType,
		Start:         appt.StartTime,
		Location:      biz.Location(),
	}
}

func eventDescription(appt *appointments.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Booked by CloudGreet AI receptionist\nCustomer: %s\n", appt.CustomerName)
	if appt.CustomerPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", appt.CustomerPhone)
	}
	fmt.Fprintf(&b, "Appointment ID: %s", appt.ID)
	return b.String()
}

func (r Request) trimmed() Request {
	return Request{
		BusinessID:    strings.TrimSpace(r.BusinessID),
		CustomerName:  strings.TrimSpace(r.CustomerName),
		CustomerPhone: strings.TrimSpace(r.CustomerPhone),
		Service:       strings.TrimSpace(r.Service),
		DateTime:      strings.TrimSpace(r.DateTime),
	}
}

func (r Request) validate() error {
	switch {
	case r.BusinessID == "":
		return &ValidationError{Field: "business_id", Reason: "is required"}
	case r.CustomerName == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case r.Service == "":
		return &ValidationError{Field: "service", Reason: "is required"}
	case r.DateTime == "":
		return &ValidationError{Field: "datetime", Reason: "is required"}
	}
	return nil
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStart parses an RFC 3339 timestamp. Values without a zone are read in loc.
func ParseStart(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("booking: unparseable datetime %q", raw)
}
