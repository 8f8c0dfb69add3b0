package booking

import (
	"fmt"

	"github.com/wolfman30/cloudgreet-receptionist/internal/appointments"
)

// Step names a best-effort side effect run after the appointment is stored.
type Step string

const (
	StepCalendar   Step = "calendar"
	StepBilling    Step = "billing"
	StepSMS        Step = "sms"
	StepOwnerEmail Step = "owner_email"
)

// Steps lists the best-effort steps in execution order.
var Steps = []Step{StepCalendar, StepBilling, StepSMS, StepOwnerEmail}

// StepStatus is the outcome of a best-effort step.
type StepStatus string

const (
	StepSkipped   StepStatus = "skipped"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// StepResult records what happened for one step. Reference holds the external
// id produced by the step, if any.
type StepResult struct {
	Status    StepStatus
	Reference string
	Err       error
}

// Result is the stored appointment plus the outcome of every best-effort step.
type Result struct {
	Appointment *appointments.Appointment
	Steps       map[Step]StepResult
}

func newResult(appt *appointments.Appointment) *Result {
	return &Result{Appointment: appt, Steps: make(map[Step]StepResult, len(Steps))}
}

// Step returns the result for name; unknown steps read as skipped.
func (r *Result) Step(name Step) StepResult {
	if r == nil {
		return StepResult{Status: StepSkipped}
	}
	res, ok := r.Steps[name]
	if !ok {
		return StepResult{Status: StepSkipped}
	}
	return res
}

// Failed lists the steps that failed.
func (r *Result) Failed() []Step {
	var out []Step
	for _, name := range Steps {
		if r.Step(name).Status == StepFailed {
			out = append(out, name)
		}
	}
	return out
}

// ValidationError reports a missing or malformed booking field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: %s %s", e.Field, e.Reason)
}

// Message is the caller-facing description of the problem.
func (e *ValidationError) Message() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
