package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/cloudgreet-receptionist/internal/appointments"
	"github.com/wolfman30/cloudgreet-receptionist/internal/booking"
	"github.com/wolfman30/cloudgreet-receptionist/internal/business"
	"github.com/wolfman30/cloudgreet-receptionist/internal/calendar"
	"github.com/wolfman30/cloudgreet-receptionist/internal/notify"
	"github.com/wolfman30/cloudgreet-receptionist/internal/observability/metrics"
	"github.com/wolfman30/cloudgreet-receptionist/internal/voice"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

const maxWebhookBody = 1 << 20

type appointmentBooker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Result, error)
}

type businessFinder interface {
	GetByString(ctx context.Context, raw string) (*business.Business, error)
}

type appointmentFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
}

type slotFinder interface {
	OpenSlots(ctx context.Context, biz *business.Business, day time.Time, duration time.Duration) ([]time.Time, error)
	Upcoming(ctx context.Context, biz *business.Business, duration time.Duration) ([]time.Time, error)
	Now() time.Time
}

type confirmationSender interface {
	SendAppointmentConfirmed(ctx context.Context, to, from, businessName, appointmentID string) error
}

// webhookResponse is the JSON body returned to the voice platform.
type webhookResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

type availabilityResponse struct {
	Success  bool     `json:"success"`
	Slots    []string `json:"slots"`
	Fallback bool     `json:"fallback"`
}

func failure(msg string) webhookResponse {
	return webhookResponse{Success: false, Error: msg}
}

// VoiceWebhookConfig configures the VoiceWebhookHandler.
type VoiceWebhookConfig struct {
	Booking          appointmentBooker
	Businesses       businessFinder
	Appointments     appointmentFinder
	Availability     slotFinder
	SMS              confirmationSender
	Verifier         *voice.Verifier
	VerifySignatures bool
	Metrics          *metrics.VoiceMetrics
	Tracer           trace.Tracer
	Logger           *logging.Logger
}

// VoiceWebhookHandler receives Retell voice-agent webhooks and dispatches tool calls.
type VoiceWebhookHandler struct {
	booking      appointmentBooker
	businesses   businessFinder
	appointments appointmentFinder
	availability slotFinder
	sms          confirmationSender
	verifier     *voice.Verifier
	verify       bool
	metrics      *metrics.VoiceMetrics
	tracer       trace.Tracer
	logger       *logging.Logger
}

// NewVoiceWebhookHandler creates a new VoiceWebhookHandler.
func NewVoiceWebhookHandler(cfg VoiceWebhookConfig) *VoiceWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("cloudgreet.internal.http.handlers")
	}
	return &VoiceWebhookHandler{
		booking:      cfg.Booking,
		businesses:   cfg.Businesses,
		appointments: cfg.Appointments,
		availability: cfg.Availability,
		sms:          cfg.SMS,
		verifier:     cfg.Verifier,
		verify:       cfg.VerifySignatures,
		metrics:      cfg.Metrics,
		tracer:       cfg.Tracer,
		logger:       cfg.Logger,
	}
}

// ServeHTTP handles POST /webhooks/retell/voice.
func (h *VoiceWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	toolLabel := "none"
	status := http.StatusOK
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("voice webhook: panic recovered", "panic", fmt.Sprint(rec), "tool", toolLabel)
			status = http.StatusInternalServerError
			writeJSON(w, status, failure("internal error"))
		}
		h.metrics.ObserveToolCall(toolLabel, status, time.Since(started).Seconds())
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		h.logger.Warn("voice webhook: failed to read body", "error", err)
		status = http.StatusBadRequest
		writeJSON(w, status, failure("invalid request body"))
		return
	}
	if len(body) > maxWebhookBody {
		status = http.StatusRequestEntityTooLarge
		writeJSON(w, status, failure("request body too large"))
		return
	}

	env, err := voice.ParseEnvelope(body)
	if err != nil {
		h.logger.Warn("voice webhook: failed to parse envelope", "error", err)
		status = http.StatusBadRequest
		writeJSON(w, status, failure("invalid JSON"))
		return
	}

	if env.IsPing() {
		toolLabel = voice.EventPing
		writeJSON(w, status, map[string]bool{"ok": true})
		return
	}

	if h.verify {
		if err := h.verifier.Verify(r.Header.Get(voice.SignatureHeader), body); err != nil {
			h.metrics.ObserveSignatureRejected(voice.RejectReason(err))
			h.logger.Warn("voice webhook: signature rejected", "event", env.Event, "error", err)
			status = http.StatusUnauthorized
			writeJSON(w, status, failure("invalid signature"))
			return
		}
	}

	if env.ToolCall == nil || strings.TrimSpace(env.ToolCall.Name) == "" {
		h.logger.Debug("voice webhook: event without tool call", "event", env.Event)
		writeJSON(w, status, webhookResponse{Success: true, Message: "received"})
		return
	}

	tool, ok := voice.ParseTool(env.ToolCall.Name)
	if !ok {
		toolLabel = "unknown"
		h.logger.Warn("voice webhook: unknown tool", "tool", env.ToolCall.Name)
		status = http.StatusBadRequest
		writeJSON(w, status, failure(fmt.Sprintf("unknown tool: %s", env.ToolCall.Name)))
		return
	}
	toolLabel = tool.String()

	ctx, span := h.tracer.Start(r.Context(), "voice.tool_call",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("cloudgreet.tool", toolLabel)),
	)
	defer span.End()

	var payload any
	status, payload = h.dispatch(ctx, tool, env)
	span.SetAttributes(attribute.Int("http.status_code", status))
	writeJSON(w, status, payload)
}

func (h *VoiceWebhookHandler) dispatch(ctx context.Context, tool voice.Tool, env voice.Envelope) (int, any) {
	switch tool {
	case voice.ToolBookAppointment:
		return h.bookAppointment(ctx, env)
	case voice.ToolSendBookingSMS:
		return h.sendBookingSMS(ctx, env)
	case voice.ToolLookupAvailability:
		return h.lookupAvailability(ctx, env)
	case voice.ToolUnknown:
	}
	return http.StatusBadRequest, failure("unknown tool")
}

func (h *VoiceWebhookHandler) bookAppointment(ctx context.Context, env voice.Envelope) (int, any) {
	var args voice.BookAppointmentArgs
	if err := env.ToolCall.DecodeArguments(&args); err != nil {
		return http.StatusBadRequest, failure("invalid arguments")
	}
	if h.booking == nil {
		return http.StatusServiceUnavailable, failure("booking not configured")
	}

	result, err := h.booking.Book(ctx, booking.Request{
		BusinessID:    env.TenantID(args.BusinessID),
		CustomerName:  args.Name,
		CustomerPhone: args.Phone,
		Service:       args.Service,
		DateTime:      args.DateTime,
	})
	var verr *booking.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		return http.StatusBadRequest, failure(verr.Message())
	case errors.Is(err, business.ErrNotFound):
		return http.StatusNotFound, failure("business not found")
	default:
		h.logger.Error("voice webhook: booking failed", "error", err)
		return http.StatusInternalServerError, failure("failed to create appointment")
	}

	if failed := result.Failed(); len(failed) > 0 {
		h.logger.Warn("voice webhook: booking completed with failed steps",
			"appointment_id", result.Appointment.ID.String(),
			"failed_steps", failed,
		)
	}
	return http.StatusOK, webhookResponse{Success: true, AppointmentID: result.Appointment.ID.String()}
}

func (h *VoiceWebhookHandler) sendBookingSMS(ctx context.Context, env voice.Envelope) (int, any) {
	var args voice.SendBookingSMSArgs
	if err := env.ToolCall.DecodeArguments(&args); err != nil {
		return http.StatusBadRequest, failure("invalid arguments")
	}
	phone := strings.TrimSpace(args.Phone)
	apptID := strings.TrimSpace(args.AppointmentID)
	if phone == "" || apptID == "" {
		return http.StatusBadRequest, failure("phone and appointment_id are required")
	}
	if h.sms == nil {
		return http.StatusServiceUnavailable, failure("sms not configured")
	}

	var from, name string
	tenant := env.TenantID(args.BusinessID)
	if tenant == "" {
		tenant = h.tenantForAppointment(ctx, apptID)
	}
	if tenant != "" && h.businesses != nil {
		if biz, err := h.businesses.GetByString(ctx, tenant); err == nil {
			from, name = biz.PhoneNumber, biz.DisplayName()
		} else {
			h.logger.Debug("voice webhook: sms tenant not resolved, using default sender", "tenant_id", tenant, "error", err)
		}
	}

	if err := h.sms.SendAppointmentConfirmed(ctx, phone, from, name, apptID); err != nil {
		switch {
		case errors.Is(err, notify.ErrNoRecipient):
			return http.StatusBadRequest, failure("invalid phone number")
		case errors.Is(err, notify.ErrSMSDisabled), errors.Is(err, notify.ErrNoSender):
			return http.StatusServiceUnavailable, failure("sms not configured")
		}
		h.logger.Error("voice webhook: confirmation sms failed", "appointment_id", apptID, "error", err)
		return http.StatusInternalServerError, failure("failed to send sms")
	}
	return http.StatusOK, webhookResponse{Success: true, Message: "sms sent"}
}

// tenantForAppointment resolves the owning business of a stored appointment, or "".
func (h *VoiceWebhookHandler) tenantForAppointment(ctx context.Context, rawID string) string {
	if h.appointments == nil {
		return ""
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return ""
	}
	appt, err := h.appointments.Get(ctx, id)
	if err != nil {
		h.logger.Debug("voice webhook: sms appointment not resolved", "appointment_id", rawID, "error", err)
		return ""
	}
	return appt.BusinessID.String()
}

func (h *VoiceWebhookHandler) lookupAvailability(ctx context.Context, env voice.Envelope) (int, any) {
	var args voice.LookupAvailabilityArgs
	if err := env.ToolCall.DecodeArguments(&args); err != nil {
		h.logger.Warn("voice webhook: availability arguments unreadable, using defaults", "error", err)
		args = voice.LookupAvailabilityArgs{}
	}
	tenant := env.TenantID(args.BusinessID)
	if tenant == "" {
		return http.StatusBadRequest, failure("business_id is required")
	}
	if h.availability == nil || h.businesses == nil {
		return http.StatusOK, fallbackResponse(time.Now(), time.UTC)
	}

	now := h.availability.Now()
	biz, err := h.businesses.GetByString(ctx, tenant)
	if err != nil {
		h.logger.Warn("voice webhook: availability business lookup failed", "tenant_id", tenant, "error", err)
		return http.StatusOK, fallbackResponse(now, time.UTC)
	}
	loc := biz.Location()
	duration := time.Duration(args.DurationMinutes()) * time.Minute

	var slots []time.Time
	if date := strings.TrimSpace(args.Date); date != "" {
		day, perr := time.ParseInLocation("2006-01-02", date, loc)
		if perr != nil {
			h.logger.Warn("voice webhook: invalid availability date", "date", date, "error", perr)
			return http.StatusOK, fallbackResponse(now, loc)
		}
		slots, err = h.availability.OpenSlots(ctx, biz, day, duration)
	} else {
		slots, err = h.availability.Upcoming(ctx, biz, duration)
	}
	if err != nil {
		h.logger.Warn("voice webhook: availability calculation failed", "business_id", biz.ID.String(), "error", err)
		return http.StatusOK, fallbackResponse(now, loc)
	}
	return http.StatusOK, availabilityResponse{Success: true, Slots: formatSlots(slots, loc), Fallback: false}
}

func fallbackResponse(now time.Time, loc *time.Location) availabilityResponse {
	return availabilityResponse{Success: true, Slots: formatSlots(calendar.FallbackSlots(now, loc), loc), Fallback: true}
}

func formatSlots(slots []time.Time, loc *time.Location) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.In(loc).Format(time.RFC3339))
	}
	return out
}

var _ http.Handler = (*VoiceWebhookHandler)(nil)
