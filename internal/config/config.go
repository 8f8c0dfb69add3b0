package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Signature verification modes for inbound voice webhooks.
const (
	SignatureModeAuto   = "auto"
	SignatureModeAlways = "always"
	SignatureModeNever  = "never"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseURL string

	// Voice webhook
	WebhookSignatureMode string
	RetellAPIKey         string
	RateLimitPerMinute   int

	// Telnyx messaging
	TelnyxAPIKey             string
	TelnyxMessagingProfileID string
	TelnyxFromNumber         string
	TelnyxTimeout            time.Duration

	// Stripe per-booking billing
	StripeSecretKey    string
	BookingFeeCents    int
	BookingFeeCurrency string

	// Google Calendar OAuth app
	GoogleClientID     string
	GoogleClientSecret string

	// Owner notification email
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		WebhookSignatureMode: strings.ToLower(strings.TrimSpace(getEnv("WEBHOOK_SIGNATURE_MODE", SignatureModeAuto))),
		RetellAPIKey:         getEnv("RETELL_API_KEY", ""),
		RateLimitPerMinute:   getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),

		TelnyxAPIKey:             getEnv("TELNYX_API_KEY", ""),
		TelnyxMessagingProfileID: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),
		TelnyxFromNumber:         getEnv("TELNYX_FROM_NUMBER", ""),
		TelnyxTimeout:            getEnvAsDuration("TELNYX_TIMEOUT", 10*time.Second),

		StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
		BookingFeeCents:    getEnvAsInt("BOOKING_FEE_CENTS", 5000),
		BookingFeeCurrency: strings.ToLower(getEnv("BOOKING_FEE_CURRENCY", "usd")),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "CloudGreet"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// IsProduction reports whether the process runs in a production-designated environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// VerifyWebhookSignatures resolves the signature mode into a decision.
// Unknown modes fall back to auto.
func (c *Config) VerifyWebhookSignatures() bool {
	switch c.WebhookSignatureMode {
	case SignatureModeAlways:
		return true
	case SignatureModeNever:
		return false
	default:
		return c.IsProduction()
	}
}

// SignatureModeKnown reports whether WEBHOOK_SIGNATURE_MODE names a supported mode.
func (c *Config) SignatureModeKnown() bool {
	switch c.WebhookSignatureMode {
	case SignatureModeAuto, SignatureModeAlways, SignatureModeNever:
		return true
	}
	return false
}

// BillingEnabled reports whether per-booking invoicing is configured.
func (c *Config) BillingEnabled() bool {
	return strings.TrimSpace(c.StripeSecretKey) != "" && c.BookingFeeCents > 0
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
