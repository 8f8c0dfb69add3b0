// Package templates renders the fixed outbound message templates.
package templates

import (
	"bytes"
	"fmt"
	"text/template"
)

// Template names.
const (
	BookingConfirmationSMS  = "booking_confirmation_sms"
	AppointmentConfirmedSMS = "appointment_confirmed_sms"
	OwnerBookingSubject     = "owner_booking_subject"
	OwnerBookingBody        = "owner_booking_body"
)

var builtins = map[string]string{
	BookingConfirmationSMS:  "Hi {{.CustomerName}}, your {{.Service}} appointment with {{.BusinessName}} is confirmed for {{.When}}. Reply STOP to opt out.",
	AppointmentConfirmedSMS: "Your appointment with {{.BusinessName}} is confirmed. Reference: {{.AppointmentID}}. Reply STOP to opt out.",
	OwnerBookingSubject:     "New booking: {{.CustomerName}} - {{.Service}}",
	OwnerBookingBody: `{{.BusinessName}} has a new appointment booked by your AI receptionist.

Customer: {{.CustomerName}}
Phone: {{if .CustomerPhone}}{{.CustomerPhone}}{{else}}not provided{{end}}
Service: {{.Service}}
When: {{.When}}
Appointment ID: {{.AppointmentID}}
`,
}

// Renderer renders the built-in templates with strict missing-key semantics.
type Renderer struct {
	set *template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() *Renderer {
	root := template.New("root").Option("missingkey=error")
	for name, text := range builtins {
		template.Must(root.New(name).Parse(text))
	}
	return &Renderer{set: root}
}

// Render executes the named template against data.
func (r *Renderer) Render(name string, data any) (string, error) {
	t := r.set.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("templates: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %s: %w", name, err)
	}
	return buf.String(), nil
}
