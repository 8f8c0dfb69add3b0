package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads tenant businesses from Postgres.
type Repository struct {
	db Querier
}

// NewRepository builds a repository on top of a pgx pool or transaction.
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("business: querier required")
	}
	return &Repository{db: db}
}

const selectBusiness = `
	SELECT id, name, phone_number, owner_email, stripe_customer_id, subscription_status,
		timezone, business_hours, google_calendar_id, google_access_token,
		google_refresh_token, google_token_expiry, created_at
	FROM businesses
	WHERE id = $1
`

// Get resolves a business by id. Missing rows yield ErrNotFound.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Business, error) {
	var (
		biz          Business
		phone        *string
		ownerEmail   *string
		customerID   *string
		status       string
		timezone     *string
		hoursRaw     []byte
		calendarID   *string
		accessToken  *string
		refreshToken *string
		tokenExpiry  *time.Time
	)
	err := r.db.QueryRow(ctx, selectBusiness, id).Scan(
		&biz.ID,
		&biz.Name,
		&phone,
		&ownerEmail,
		&customerID,
		&status,
		&timezone,
		&hoursRaw,
		&calendarID,
		&accessToken,
		&refreshToken,
		&tokenExpiry,
		&biz.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("business: select %s: %w", id, err)
	}

	biz.PhoneNumber = deref(phone)
	biz.OwnerEmail = deref(ownerEmail)
	biz.StripeCustomerID = deref(customerID)
	biz.SubscriptionStatus = SubscriptionStatus(status)
	biz.Timezone = deref(timezone)
	if len(hoursRaw) > 0 {
		if err := json.Unmarshal(hoursRaw, &biz.Hours); err != nil {
			return nil, fmt.Errorf("business: decode hours for %s: %w", id, err)
		}
	}
	if calendarID != nil || refreshToken != nil || accessToken != nil {
		conn := &CalendarConnection{
			CalendarID:   deref(calendarID),
			AccessToken:  deref(accessToken),
			RefreshToken: deref(refreshToken),
		}
		if conn.CalendarID == "" {
			conn.CalendarID = "primary"
		}
		if tokenExpiry != nil {
			conn.TokenExpiry = *tokenExpiry
		}
		biz.Calendar = conn
	}
	return &biz, nil
}

// GetByString parses a tenant identifier and resolves it. Malformed
// identifiers cannot name an existing tenant and map to ErrNotFound.
func (r *Repository) GetByString(ctx context.Context, raw string) (*Business, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, raw)
	}
	return r.Get(ctx, id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
