package voice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "X-Retell-Signature"

// DefaultMaxSkew bounds how far a signed timestamp may drift from now.
const DefaultMaxSkew = 5 * time.Minute

var (
	ErrSignatureMissing      = errors.New("voice: missing signature header")
	ErrSignatureMalformed    = errors.New("voice: malformed signature header")
	ErrSignatureExpired      = errors.New("voice: signature timestamp outside allowed skew")
	ErrSignatureMismatch     = errors.New("voice: signature mismatch")
	ErrVerifierNotConfigured = errors.New("voice: webhook api key not configured")
)

// Verifier checks webhook signatures made with the platform API key.
type Verifier struct {
	apiKey  []byte
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier creates a verifier for apiKey.
func NewVerifier(apiKey string) *Verifier {
	return &Verifier{
		apiKey:  []byte(strings.TrimSpace(apiKey)),
		maxSkew: DefaultMaxSkew,
		now:     time.Now,
	}
}

// WithClock overrides the time source.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	if now != nil {
		v.now = now
	}
	return v
}

// Verify validates header against the raw body. Two forms are accepted:
// "v=<unix_ms>,d=<hex hmac(body+timestamp)>" and a bare hex hmac(body).
func (v *Verifier) Verify(header string, body []byte) error {
	if v == nil || len(v.apiKey) == 0 {
		return ErrVerifierNotConfigured
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrSignatureMissing
	}
	if !strings.Contains(header, "=") {
		return v.compare(header, body)
	}

	var ts, digest string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrSignatureMalformed
		}
		switch key {
		case "v":
			ts = value
		case "d":
			digest = value
		}
	}
	if ts == "" || digest == "" {
		return ErrSignatureMalformed
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: timestamp: %v", ErrSignatureMalformed, err)
	}
	if diff := v.now().Sub(time.UnixMilli(ms)); diff > v.maxSkew || diff < -v.maxSkew {
		return ErrSignatureExpired
	}
	signed := make([]byte, 0, len(body)+len(ts))
	signed = append(signed, body...)
	signed = append(signed, ts...)
	return v.compare(digest, signed)
}

// Sign produces the timestamped header value for body at t.
func (v *Verifier) Sign(body []byte, t time.Time) string {
	ts := strconv.FormatInt(t.UnixMilli(), 10)
	return fmt.Sprintf("v=%s,d=%s", ts, v.digest(append(append([]byte{}, body...), ts...)))
}

func (v *Verifier) compare(signature string, payload []byte) error {
	expected := v.digest(payload)
	actual := strings.ToLower(strings.TrimSpace(signature))
	if !hmac.Equal([]byte(expected), []byte(actual)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (v *Verifier) digest(payload []byte) string {
	mac := hmac.New(sha256.New, v.apiKey)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// RejectReason is a short metric label for a verification error.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrSignatureMissing):
		return "missing"
	case errors.Is(err, ErrSignatureMalformed):
		return "malformed"
	case errors.Is(err, ErrSignatureExpired):
		return "expired"
	case errors.Is(err, ErrSignatureMismatch):
		return "mismatch"
	case errors.Is(err, ErrVerifierNotConfigured):
		return "unconfigured"
	default:
		return "error"
	}
}
