// Package voice models the Retell voice-agent webhook: the event envelope,
// the closed set of tools the agent may call and request signing.
package voice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EventPing is the liveness event sent by the voice platform.
const EventPing = "ping"

// Envelope is the webhook body.
type Envelope struct {
	Event    string    `json:"event"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// Metadata carries call-level context configured on the agent.
type Metadata struct {
	TenantID string `json:"tenant_id,omitempty"`
}

// ToolCall is a function invocation requested by the agent's LLM.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// IsPing reports whether the envelope is a liveness check.
func (e Envelope) IsPing() bool {
	return strings.EqualFold(strings.TrimSpace(e.Event), EventPing)
}

// TenantID returns explicit, falling back to the call metadata tenant.
func (e Envelope) TenantID(explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	return strings.TrimSpace(e.Metadata.TenantID)
}

// ParseEnvelope decodes a webhook body.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if len(bytes.TrimSpace(body)) == 0 {
		return env, errors.New("voice: empty body")
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("voice: decode envelope: %w", err)
	}
	return env, nil
}

// DecodeArguments unmarshals the tool arguments into dst. Arguments may be a JSON
// object or a JSON string containing an object; absent arguments leave dst untouched.
func (c *ToolCall) DecodeArguments(dst any) error {
	if c == nil {
		return nil
	}
	raw := bytes.TrimSpace(c.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("voice: decode arguments: %w", err)
		}
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		raw = []byte(inner)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("voice: decode arguments: %w", err)
	}
	return nil
}

// BookAppointmentArgs are the book_appointment arguments.
type BookAppointmentArgs struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Service    string `json:"service"`
	DateTime   string `json:"datetime"`
}

// SendBookingSMSArgs are the send_booking_sms arguments.
type SendBookingSMSArgs struct {
	BusinessID    string `json:"business_id"`
	Phone         string `json:"phone"`
	AppointmentID string `json:"appointment_id"`
}

// LookupAvailabilityArgs are the lookup_availability arguments. Duration is kept
// raw so an unusable value never fails the decode.
type LookupAvailabilityArgs struct {
	BusinessID string          `json:"business_id"`
	Date       string          `json:"date"`
	Duration   json.RawMessage `json:"duration"`
}

// DefaultDurationMinutes applies when duration is absent or not a positive number.
const DefaultDurationMinutes = 60

// DurationMinutes returns the requested duration. Numbers and numeric strings are accepted.
func (a LookupAvailabilityArgs) DurationMinutes() int {
	raw := strings.TrimSpace(string(a.Duration))
	if raw == "" || raw == "null" {
		return DefaultDurationMinutes
	}
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err != nil {
			return DefaultDurationMinutes
		}
		raw = strings.TrimSpace(inner)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(f >= 1 && f <= 24*60) {
		return DefaultDurationMinutes
	}
	return int(f)
}
