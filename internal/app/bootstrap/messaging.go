package bootstrap

import (
	"strings"

	appconfig "github.com/wolfman30/cloudgreet-receptionist/internal/config"
	"github.com/wolfman30/cloudgreet-receptionist/internal/messaging/telnyxclient"
	"github.com/wolfman30/cloudgreet-receptionist/internal/notify"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

// BuildSMSClient creates the Telnyx sender. It returns nil plus a reason when
// SMS cannot be enabled.
func BuildSMSClient(cfg *appconfig.Config, logger *logging.Logger) (notify.SMSSender, string) {
	if cfg == nil {
		return nil, "missing config"
	}
	if strings.TrimSpace(cfg.TelnyxAPIKey) == "" {
		return nil, "TELNYX_API_KEY not set"
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.TelnyxFromNumber) == "" {
		logger.Warn("TELNYX_FROM_NUMBER not set; SMS will only send for tenants with a phone number")
	}

	client, err := telnyxclient.New(telnyxclient.Config{
		APIKey:             cfg.TelnyxAPIKey,
		MessagingProfileID: cfg.TelnyxMessagingProfileID,
		Timeout:            cfg.TelnyxTimeout,
		Logger:             logger,
	})
	if err != nil {
		return nil, err.Error()
	}
	return client, ""
}
