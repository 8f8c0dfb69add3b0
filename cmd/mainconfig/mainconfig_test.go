package mainconfig

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/cloudgreet-receptionist/internal/config"
	"github.com/wolfman30/cloudgreet-receptionist/internal/notify"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

func TestLoadAWSConfigEndpointOverride(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "us-west-2",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg.Region != "us-west-2" {
		t.Fatalf("expected region us-west-2, got %s", awsCfg.Region)
	}
	if awsCfg.BaseEndpoint == nil || *awsCfg.BaseEndpoint != "http://localhost:4566" {
		t.Fatalf("expected endpoint override to be applied")
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" {
		t.Fatalf("expected static credentials, got %q", creds.AccessKeyID)
	}
}

func TestBuildEmailSender(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	logger := logging.New("error")
	base := appconfig.Config{
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
		EmailFromAddress:   "bookings@cloudgreet.test",
	}

	none := base
	none.EmailProvider = EmailProviderNone
	sender, err := BuildEmailSender(context.Background(), &none, logger)
	if err != nil || sender != nil {
		t.Fatalf("expected disabled email, got %v, %v", sender, err)
	}

	sg := base
	sg.EmailProvider = EmailProviderSendGrid
	sg.SendGridAPIKey = "SG.test"
	sender, err = BuildEmailSender(context.Background(), &sg, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(*notify.SendGridSender); !ok {
		t.Fatalf("expected SendGrid sender, got %T", sender)
	}

	sg.SendGridAPIKey = ""
	if _, err := BuildEmailSender(context.Background(), &sg, logger); err == nil {
		t.Fatalf("expected error without SendGrid key")
	}

	ses := base
	ses.EmailProvider = EmailProviderSES
	sender, err = BuildEmailSender(context.Background(), &ses, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(*notify.SESSender); !ok {
		t.Fatalf("expected SES sender, got %T", sender)
	}

	bad := base
	bad.EmailProvider = "pigeon"
	if _, err := BuildEmailSender(context.Background(), &bad, logger); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
