package bootstrap

import (
	"fmt"

	"github.com/wolfman30/cloudgreet-receptionist/internal/billing"
	"github.com/wolfman30/cloudgreet-receptionist/internal/booking"
	"github.com/wolfman30/cloudgreet-receptionist/internal/calendar"
	appconfig "github.com/wolfman30/cloudgreet-receptionist/internal/config"
	"github.com/wolfman30/cloudgreet-receptionist/internal/voice"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

// BuildInvoicer returns the Stripe invoicer, or nil when billing is not configured.
func BuildInvoicer(cfg *appconfig.Config, logger *logging.Logger) (booking.Invoicer, error) {
	if cfg == nil || !cfg.BillingEnabled() {
		return nil, nil
	}
	invoicer, err := billing.NewStripeInvoicer(billing.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		FeeCents:  int64(cfg.BookingFeeCents),
		Currency:  cfg.BookingFeeCurrency,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: stripe invoicer: %w", err)
	}
	return invoicer, nil
}

// BuildCalendarProvider returns the Google Calendar provider. Tenants without a
// connection are skipped by the callers.
func BuildCalendarProvider(cfg *appconfig.Config, logger *logging.Logger) *calendar.GoogleProvider {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		logger.Warn("google oauth client not configured; calendar tokens will not be refreshed")
	}
	return calendar.NewGoogleProvider(calendar.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Logger:       logger,
	})
}

// BuildWebhookVerifier resolves the signature mode into a verifier and the
// decision to enforce it.
func BuildWebhookVerifier(cfg *appconfig.Config, logger *logging.Logger) (*voice.Verifier, bool) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.SignatureModeKnown() {
		logger.Warn("unknown WEBHOOK_SIGNATURE_MODE; treating as auto",
			"mode", cfg.WebhookSignatureMode,
			"production", cfg.IsProduction(),
		)
	}
	verify := cfg.VerifyWebhookSignatures()
	verifier := voice.NewVerifier(cfg.RetellAPIKey)
	switch {
	case verify && cfg.RetellAPIKey == "":
		logger.Error("webhook signature verification enabled without RETELL_API_KEY; all tool calls will be rejected")
	case !verify && cfg.IsProduction():
		logger.Warn("webhook signature verification disabled in production", "mode", cfg.WebhookSignatureMode)
	}
	logger.Info("webhook signature verification", "mode", cfg.WebhookSignatureMode, "enforced", verify)
	return verifier, verify
}
