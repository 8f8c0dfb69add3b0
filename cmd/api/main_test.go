package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	appconfig "github.com/wolfman30/cloudgreet-receptionist/internal/config"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

func TestSetupMetricsExposesVoiceMetrics(t *testing.T) {
	handler, voiceMetrics := setupMetrics()
	if handler == nil || voiceMetrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	voiceMetrics.ObserveToolCall("book_appointment", http.StatusOK, 0.05)
	voiceMetrics.ObserveBookingStep("calendar", "succeeded")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"cloudgreet_voice_tool_calls_total", "cloudgreet_booking_steps_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s to be exported", name)
		}
	}
}

func TestBuildVoiceWebhookAnswersPing(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	cfg := &appconfig.Config{
		Env:                  "production",
		WebhookSignatureMode: appconfig.SignatureModeAuto,
		RetellAPIKey:         "retell-key",
		EmailProvider:        "none",
		BookingFeeCents:      5000,
	}
	_, voiceMetrics := setupMetrics()
	h, err := buildVoiceWebhook(context.Background(), cfg, logging.New("error"), mock, voiceMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/retell/voice", strings.NewReader(`{"event":"ping"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected ping to succeed, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/retell/voice", strings.NewReader(`{"event":"call_tool","tool_call":{"name":"book_appointment"}}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected unsigned production request to be rejected, got %d", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database calls: %v", err)
	}
}

func TestBuildVoiceWebhookRejectsUnknownEmailProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	cfg := &appconfig.Config{EmailProvider: "carrier-pigeon"}
	_, voiceMetrics := setupMetrics()
	if _, err := buildVoiceWebhook(context.Background(), cfg, logging.New("error"), mock, voiceMetrics); err == nil {
		t.Fatalf("expected error for unknown email provider")
	}
}
