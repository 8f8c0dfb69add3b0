// Package business models tenant businesses and resolves them from Postgres.
package business

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no business matches the identifier.
var ErrNotFound = errors.New("business not found")

// SubscriptionStatus is the soft lifecycle state of a tenant account.
type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// CalendarConnection holds the OAuth grant for a tenant's Google Calendar.
type CalendarConnection struct {
	CalendarID   string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// Business is a single tenant account.
type Business struct {
	ID                 uuid.UUID
	Name               string
	PhoneNumber        string
	OwnerEmail         string
	StripeCustomerID   string
	SubscriptionStatus SubscriptionStatus
	Timezone           string
	Hours              BusinessHours
	Calendar           *CalendarConnection
	CreatedAt          time.Time
}

// Location returns the business timezone, falling back to UTC.
func (b *Business) Location() *time.Location {
	if b == nil || strings.TrimSpace(b.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasCalendar reports whether a usable calendar grant is connected.
func (b *Business) HasCalendar() bool {
	if b == nil || b.Calendar == nil {
		return false
	}
	return b.Calendar.RefreshToken != "" || b.Calendar.AccessToken != ""
}

// Billable reports whether the tenant has a payment-processor customer.
func (b *Business) Billable() bool {
	return b != nil && strings.TrimSpace(b.StripeCustomerID) != ""
}

// DisplayName falls back to a generic label for unnamed tenants.
func (b *Business) DisplayName() string {
	if b == nil || strings.TrimSpace(b.Name) == "" {
		return "our office"
	}
	return b.Name
}
