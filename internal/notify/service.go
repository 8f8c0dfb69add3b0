// Package notify delivers booking confirmations to customers and business owners.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/cloudgreet-receptionist/internal/messaging"
	"github.com/wolfman30/cloudgreet-receptionist/internal/messaging/telnyxclient"
	"github.com/wolfman30/cloudgreet-receptionist/internal/messaging/templates"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

var (
	// ErrSMSDisabled is returned when no SMS provider is configured.
	ErrSMSDisabled = errors.New("notify: sms provider not configured")
	// ErrEmailDisabled is returned when no email sender is configured.
	ErrEmailDisabled = errors.New("notify: email sender not configured")
	// ErrNoRecipient is returned when the destination phone or address is empty.
	ErrNoRecipient = errors.New("notify: recipient required")
	// ErrNoSender is returned when no from number is available.
	ErrNoSender = errors.New("notify: from number required")
)

const whenLayout = "Monday, January 2 at 3:04 PM MST"

// SMSSender sends a single outbound SMS.
type SMSSender interface {
	SendMessage(ctx context.Context, req telnyxclient.SendMessageRequest) (*telnyxclient.MessageResponse, error)
}

// Booking is the view of an appointment used to render notifications.
type Booking struct {
	AppointmentID uuid.UUID
	BusinessName  string
	BusinessPhone string
	OwnerEmail    string
	CustomerName  string
	CustomerPhone string
	Service       string
	Start         time.Time
	Location      *time.Location
}

func (b Booking) when() string {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	return b.Start.In(loc).Format(whenLayout)
}

func (b Booking) fields() map[string]string {
	return map[string]string{
		"AppointmentID": b.AppointmentID.String(),
		"BusinessName":  b.BusinessName,
		"CustomerName":  b.CustomerName,
		"CustomerPhone": b.CustomerPhone,
		"Service":       b.Service,
		"When":          b.when(),
	}
}

// Config wires the notification service.
type Config struct {
	SMS         SMSSender
	Email       EmailSender
	DefaultFrom string
	Logger      *logging.Logger
}

// Service renders and sends booking notifications.
type Service struct {
	sms         SMSSender
	email       EmailSender
	defaultFrom string
	renderer    *templates.Renderer
	logger      *logging.Logger
}

// NewService creates a notification service. Either channel may be nil.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		sms:         cfg.SMS,
		email:       cfg.Email,
		defaultFrom: messaging.NormalizeE164(cfg.DefaultFrom),
		renderer:    templates.NewRenderer(),
		logger:      cfg.Logger,
	}
}

// EmailEnabled reports whether an email sender is configured.
func (s *Service) EmailEnabled() bool {
	return s != nil && s.email != nil
}

// SendBookingConfirmation texts the customer the details of a new booking.
func (s *Service) SendBookingConfirmation(ctx context.Context, b Booking) error {
	body, err := s.renderer.Render(templates.BookingConfirmationSMS, b.fields())
	if err != nil {
		return err
	}
	return s.sendSMS(ctx, b.CustomerPhone, s.fromFor(b.BusinessPhone), body, b.AppointmentID.String())
}

// SendAppointmentConfirmed texts the fixed confirmation for an existing appointment.
// from overrides the default sender when non-empty.
func (s *Service) SendAppointmentConfirmed(ctx context.Context, to, from, businessName, appointmentID string) error {
	if strings.TrimSpace(businessName) == "" {
		businessName = "our office"
	}
	body, err := s.renderer.Render(templates.AppointmentConfirmedSMS, map[string]string{
		"BusinessName":  businessName,
		"AppointmentID": appointmentID,
	})
	if err != nil {
		return err
	}
	return s.sendSMS(ctx, to, s.fromFor(from), body, appointmentID)
}

// NotifyOwner emails the business owner about a new booking.
func (s *Service) NotifyOwner(ctx context.Context, b Booking) error {
	if s.email == nil {
		return ErrEmailDisabled
	}
	to := strings.TrimSpace(b.OwnerEmail)
	if to == "" {
		return ErrNoRecipient
	}
	fields := b.fields()
	subject, err := s.renderer.Render(templates.OwnerBookingSubject, fields)
	if err != nil {
		return err
	}
	body, err := s.renderer.Render(templates.OwnerBookingBody, fields)
	if err != nil {
		return err
	}
	if err := s.email.Send(ctx, EmailMessage{To: to, ToName: b.BusinessName, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("notify: owner email: %w", err)
	}
	return nil
}

func (s *Service) fromFor(preferred string) string {
	if from := messaging.NormalizeE164(preferred); from != "" {
		return from
	}
	return s.defaultFrom
}

func (s *Service) sendSMS(ctx context.Context, to, from, body, appointmentID string) error {
	if s.sms == nil {
		return ErrSMSDisabled
	}
	to = messaging.NormalizeE164(to)
	if to == "" {
		return ErrNoRecipient
	}
	if from == "" {
		return ErrNoSender
	}
	resp, err := s.sms.SendMessage(ctx, telnyxclient.SendMessageRequest{From: from, To: to, Body: body})
	if err != nil {
		s.logger.Warn("confirmation sms failed", "appointment_id", appointmentID, "error", err)
		return fmt.Errorf("notify: send sms: %w", err)
	}
	messageID := ""
	if resp != nil {
		messageID = resp.ID
	}
	s.logger.Info("confirmation sms sent", "appointment_id", appointmentID, "message_id", messageID)
	return nil
}
