package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments in Postgres.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("appointments: querier required")
	}
	return &Repository{db: db}
}

// Create inserts a scheduled appointment row.
func (r *Repository) Create(ctx context.Context, req NewAppointment) (*Appointment, error) {
	if req.BusinessID == uuid.Nil {
		return nil, errors.New("appointments: business id required")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, errors.New("appointments: end time must be after start time")
	}

	id := uuid.New()
	query := `
		INSERT INTO appointments (id, business_id, customer_name, customer_phone, service_type, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.BusinessID,
		req.CustomerName,
		req.CustomerPhone,
		req.ServiceType,
		req.StartTime.UTC(),
		req.EndTime.UTC(),
		string(StatusScheduled),
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	return &Appointment{
		ID:            id,
		BusinessID:    req.BusinessID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		ServiceType:   req.ServiceType,
		StartTime:     req.StartTime.UTC(),
		EndTime:       req.EndTime.UTC(),
		Status:        StatusScheduled,
		CreatedAt:     createdAt,
	}, nil
}

// AttachCalendarEvent records the external calendar event id.
func (r *Repository) AttachCalendarEvent(ctx context.Context, id uuid.UUID, eventID string) error {
	return r.attach(ctx, "google_event_id", id, eventID)
}

// AttachInvoice records the billing invoice id.
func (r *Repository) AttachInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error {
	return r.attach(ctx, "stripe_invoice_id", id, invoiceID)
}

// attach only ever sets a single reference column; column is never caller input.
func (r *Repository) attach(ctx context.Context, column string, id uuid.UUID, value string) error {
	query := fmt.Sprintf(`UPDATE appointments SET %s = $2, updated_at = now() WHERE id = $1`, column)
	tag, err := r.db.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("appointments: set %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get fetches an appointment by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `
		SELECT id, business_id, customer_name, customer_phone, service_type, start_time, end_time,
			status, COALESCE(google_event_id, ''), COALESCE(stripe_invoice_id, ''), created_at
		FROM appointments
		WHERE id = $1
	`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return appt, nil
}

// ListBetween returns the business's appointments overlapping [from, to).
func (r *Repository) ListBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT id, business_id, customer_name, customer_phone, service_type, start_time, end_time,
			status, COALESCE(google_event_id, ''), COALESCE(stripe_invoice_id, ''), created_at
		FROM appointments
		WHERE business_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`
	rows, err := r.db.Query(ctx, query, businessID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.CustomerName,
		&appt.CustomerPhone,
		&appt.ServiceType,
		&appt.StartTime,
		&appt.EndTime,
		&status,
		&appt.CalendarEventID,
		&appt.InvoiceID,
		&appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	return &appt, nil
}
