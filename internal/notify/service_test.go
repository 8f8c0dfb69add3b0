package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/cloudgreet-receptionist/internal/messaging/telnyxclient"
)

type mockSMSSender struct {
	sent []telnyxclient.SendMessageRequest
	err  error
}

func (m *mockSMSSender) SendMessage(ctx context.Context, req telnyxclient.SendMessageRequest) (*telnyxclient.MessageResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, req)
	return &telnyxclient.MessageResponse{ID: "msg_1"}, nil
}

type mockEmailSender struct {
	sent []EmailMessage
	err  error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testBooking() Booking {
	est := time.FixedZone("EST", -5*3600)
	return Booking{
		AppointmentID: uuid.MustParse("7f1c2a52-5a8b-4a7e-9d7c-2f49c1c1d001"),
		BusinessName:  "Cool Air HVAC",
		BusinessPhone: "",
		OwnerEmail:    "owner@coolair.test",
		CustomerName:  "Jane Doe",
		CustomerPhone: "(555) 123-4567",
		Service:       "AC repair",
		Start:         time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		Location:      est,
	}
}

func TestSendBookingConfirmation(t *testing.T) {
	sms := &mockSMSSender{}
	svc := NewService(Config{SMS: sms, DefaultFrom: "+15550001111"})

	if err := svc.SendBookingConfirmation(context.Background(), testBooking()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(sms.sent))
	}
	msg := sms.sent[0]
	if msg.To != "+15551234567" || msg.From != "+15550001111" {
		t.Fatalf("unexpected routing %+v", msg)
	}
	if !strings.Contains(msg.Body, "Sunday, June 1 at 9:00 AM EST") {
		t.Fatalf("expected local time in body, got %q", msg.Body)
	}
}

func TestSendBookingConfirmationPrefersBusinessNumber(t *testing.T) {
	sms := &mockSMSSender{}
	svc := NewService(Config{SMS: sms, DefaultFrom: "+15550001111"})
	b := testBooking()
	b.BusinessPhone = "+15559998888"

	if err := svc.SendBookingConfirmation(context.Background(), b); err != nil {
		t.Fatalf("send: %v", err)
	}
	if sms.sent[0].From != "+15559998888" {
		t.Fatalf("expected business number as sender, got %s", sms.sent[0].From)
	}
}

func TestSendBookingConfirmationErrors(t *testing.T) {
	b := testBooking()

	if err := NewService(Config{}).SendBookingConfirmation(context.Background(), b); !errors.Is(err, ErrSMSDisabled) {
		t.Fatalf("expected ErrSMSDisabled, got %v", err)
	}
	if err := NewService(Config{SMS: &mockSMSSender{}}).SendBookingConfirmation(context.Background(), b); !errors.Is(err, ErrNoSender) {
		t.Fatalf("expected ErrNoSender, got %v", err)
	}
	noPhone := b
	noPhone.CustomerPhone = ""
	if err := NewService(Config{SMS: &mockSMSSender{}, DefaultFrom: "+15550001111"}).SendBookingConfirmation(context.Background(), noPhone); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	failing := NewService(Config{SMS: &mockSMSSender{err: errors.New("carrier down")}, DefaultFrom: "+15550001111"})
	if err := failing.SendBookingConfirmation(context.Background(), b); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestSendAppointmentConfirmed(t *testing.T) {
	sms := &mockSMSSender{}
	svc := NewService(Config{SMS: sms, DefaultFrom: "+15550001111"})

	if err := svc.SendAppointmentConfirmed(context.Background(), "+15551234567", "", "", "appt-1"); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := "Your appointment with our office is confirmed. Reference: appt-1. Reply STOP to opt out."
	if sms.sent[0].Body != want {
		t.Fatalf("unexpected body %q", sms.sent[0].Body)
	}
	if sms.sent[0].From != "+15550001111" {
		t.Fatalf("expected default sender, got %s", sms.sent[0].From)
	}
}

func TestNotifyOwner(t *testing.T) {
	email := &mockEmailSender{}
	svc := NewService(Config{Email: email})
	if !svc.EmailEnabled() {
		t.Fatal("expected email enabled")
	}

	if err := svc.NotifyOwner(context.Background(), testBooking()); err != nil {
		t.Fatalf("notify owner: %v", err)
	}
	if len(email.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(email.sent))
	}
	msg := email.sent[0]
	if msg.To != "owner@coolair.test" || msg.Subject != "New booking: Jane Doe - AC repair" {
		t.Fatalf("unexpected email %+v", msg)
	}
	if !strings.Contains(msg.Body, "Appointment ID: 7f1c2a52-5a8b-4a7e-9d7c-2f49c1c1d001") {
		t.Fatalf("expected appointment id in body, got %q", msg.Body)
	}
}

func TestNotifyOwnerErrors(t *testing.T) {
	if err := NewService(Config{}).NotifyOwner(context.Background(), testBooking()); !errors.Is(err, ErrEmailDisabled) {
		t.Fatalf("expected ErrEmailDisabled, got %v", err)
	}
	b := testBooking()
	b.OwnerEmail = " "
	if err := NewService(Config{Email: &mockEmailSender{}}).NotifyOwner(context.Background(), b); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if err := NewService(Config{Email: &mockEmailSender{err: errors.New("smtp")}}).NotifyOwner(context.Background(), testBooking()); err == nil {
		t.Fatal("expected sender error")
	}
}
