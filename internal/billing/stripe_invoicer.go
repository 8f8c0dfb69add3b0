// Package billing charges the per-booking fee through Stripe invoices.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

var stripeTracer = otel.Tracer("cloudgreet.internal.billing.stripe")

// ErrNoCustomer is returned when the business has no Stripe customer on file.
var ErrNoCustomer = errors.New("billing: stripe customer id required")

// InvoiceRequest describes the fee invoice for one appointment.
type InvoiceRequest struct {
	CustomerID    string
	BusinessID    uuid.UUID
	AppointmentID uuid.UUID
	Description   string
}

// StripeConfig configures the Stripe invoicer.
type StripeConfig struct {
	SecretKey string
	FeeCents  int64
	Currency  string
	// BaseURL overrides the Stripe API host.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// StripeInvoicer issues and pays booking fee invoices.
type StripeInvoicer struct {
	api      *client.API
	feeCents int64
	currency string
	logger   *logging.Logger
}

// NewStripeInvoicer creates an invoicer. Network retries are disabled.
func NewStripeInvoicer(cfg StripeConfig) (*StripeInvoicer, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errors.New("billing: stripe secret key required")
	}
	if cfg.FeeCents <= 0 {
		return nil, errors.New("billing: fee must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     stripeLogger{logger: cfg.Logger},
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		backendCfg.URL = stripe.String(base)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)
	api := client.New(key, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &StripeInvoicer{
		api:      api,
		feeCents: cfg.FeeCents,
		currency: currency,
		logger:   cfg.Logger,
	}, nil
}

// IssueInvoice creates a draft invoice, adds the fee line item to it, and finalizes it.
// The returned id is the finalized invoice.
func (s *StripeInvoicer) IssueInvoice(ctx context.Context, req InvoiceRequest) (string, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.issue_invoice")
	defer span.End()
	span.SetAttributes(
		attribute.String("cloudgreet.business_id", req.BusinessID.String()),
		attribute.String("cloudgreet.appointment_id", req.AppointmentID.String()),
		attribute.Int64("cloudgreet.amount_cents", s.feeCents),
	)

	customer := strings.TrimSpace(req.CustomerID)
	if customer == "" {
		return "", ErrNoCustomer
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Appointment booking fee"
	}

	invoiceParams := &stripe.InvoiceParams{
		Customer:                    stripe.String(customer),
		PendingInvoiceItemsBehavior: stripe.String("exclude"),
		AutoAdvance:                 stripe.Bool(false),
		Description:                 stripe.String(description),
	}
	invoiceParams.Context = ctx
	invoiceParams.AddMetadata("appointment_id", req.AppointmentID.String())
	invoice, err := s.api.Invoices.New(invoiceParams)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("billing: create invoice: %w", err)
	}

	// The item is bound to this draft so it never lingers as a pending customer item.
	itemParams := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customer),
		Invoice:     stripe.String(invoice.ID),
		Amount:      stripe.Int64(s.feeCents),
		Currency:    stripe.String(s.currency),
		Description: stripe.String(description),
	}
	itemParams.Context = ctx
	itemParams.AddMetadata("appointment_id", req.AppointmentID.String())
	itemParams.AddMetadata("business_id", req.BusinessID.String())
	if _, err := s.api.InvoiceItems.New(itemParams); err != nil {
		span.RecordError(err)
		s.discardDraft(ctx, invoice.ID)
		return "", fmt.Errorf("billing: create invoice item: %w", err)
	}

	finalizeParams := &stripe.InvoiceFinalizeInvoiceParams{}
	finalizeParams.Context = ctx
	finalized, err := s.api.Invoices.FinalizeInvoice(invoice.ID, finalizeParams)
	if err != nil {
		span.RecordError(err)
		return invoice.ID, fmt.Errorf("billing: finalize invoice %s: %w", invoice.ID, err)
	}

	s.logger.Info("booking fee invoice issued",
		"invoice_id", finalized.ID,
		"appointment_id", req.AppointmentID.String(),
		"amount_cents", s.feeCents,
	)
	return finalized.ID, nil
}

func (s *StripeInvoicer) discardDraft(ctx context.Context, invoiceID string) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	if _, err := s.api.Invoices.Del(invoiceID, params); err != nil {
		s.logger.Warn("failed to delete empty draft invoice", "invoice_id", invoiceID, "error", err)
	}
}

// PayInvoice attempts to collect a finalized invoice with the customer's default method.
func (s *StripeInvoicer) PayInvoice(ctx context.Context, invoiceID string) (string, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.pay_invoice")
	defer span.End()
	span.SetAttributes(attribute.String("stripe.invoice_id", invoiceID))

	params := &stripe.InvoicePayParams{}
	params.Context = ctx
	paid, err := s.api.Invoices.Pay(invoiceID, params)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("billing: pay invoice %s: %w", invoiceID, err)
	}
	return string(paid.Status), nil
}
