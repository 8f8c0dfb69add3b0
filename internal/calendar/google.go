// Package calendar mirrors bookings into Google Calendar and computes open slots.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/wolfman30/cloudgreet-receptionist/internal/business"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

var tracer = otel.Tracer("cloudgreet.internal.calendar")

// ErrNotConnected is returned when a business has no calendar connection.
var ErrNotConnected = errors.New("calendar: business has no connected calendar")

// Event is the calendar entry written for a booking.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// GoogleConfig configures the Google Calendar provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// Endpoint overrides the API base URL.
	Endpoint   string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// GoogleProvider talks to the Google Calendar v3 API using per-business OAuth tokens.
type GoogleProvider struct {
	oauth      *oauth2.Config
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewGoogleProvider builds a provider. Credentials may be empty, in which case
// stored access tokens are used until they expire.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarScope},
		},
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

func (p *GoogleProvider) service(ctx context.Context, conn *business.CalendarConnection) (*gcal.Service, error) {
	if conn == nil || (conn.AccessToken == "" && conn.RefreshToken == "") {
		return nil, ErrNotConnected
	}
	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       conn.TokenExpiry,
	}
	// Token refreshes go through the same bounded HTTP client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	opts := []option.ClientOption{option.WithHTTPClient(p.oauth.Client(ctx, token))}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: build google service: %w", err)
	}
	return svc, nil
}

// CreateEvent inserts an event and returns its id.
func (p *GoogleProvider) CreateEvent(ctx context.Context, conn *business.CalendarConnection, evt Event) (string, error) {
	ctx, span := tracer.Start(ctx, "calendar.create_event")
	defer span.End()

	svc, err := p.service(ctx, conn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "service")
		return "", err
	}
	calendarID := calendarIDFor(conn)
	span.SetAttributes(attribute.String("calendar.id", calendarID))

	created, err := svc.Events.Insert(calendarID, &gcal.Event{
		Summary:     evt.Summary,
		Description: evt.Description,
		Start:       &gcal.EventDateTime{DateTime: evt.Start.Format(time.RFC3339), TimeZone: evt.TimeZone},
		End:         &gcal.EventDateTime{DateTime: evt.End.Format(time.RFC3339), TimeZone: evt.TimeZone},
	}).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert")
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	if created.Id == "" {
		return "", errors.New("calendar: insert event: response missing id")
	}
	p.logger.Debug("calendar event created", "calendar_id", calendarID, "event_id", created.Id)
	return created.Id, nil
}

// BusyIntervals returns the calendar's busy periods within [from, to).
func (p *GoogleProvider) BusyIntervals(ctx context.Context, conn *business.CalendarConnection, from, to time.Time) ([]Interval, error) {
	ctx, span := tracer.Start(ctx, "calendar.free_busy")
	defer span.End()

	svc, err := p.service(ctx, conn)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	calendarID := calendarIDFor(conn)
	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "freebusy")
		return nil, fmt.Errorf("calendar: free/busy query: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("calendar: free/busy %s: %s", calendarID, cal.Errors[0].Reason)
	}
	out := make([]Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar: parse busy start %q: %w", period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("calendar: parse busy end %q: %w", period.End, err)
		}
		out = append(out, Interval{Start: start, End: end})
	}
	return out, nil
}

func calendarIDFor(conn *business.CalendarConnection) string {
	if conn == nil || strings.TrimSpace(conn.CalendarID) == "" {
		return "primary"
	}
	return conn.CalendarID
}
