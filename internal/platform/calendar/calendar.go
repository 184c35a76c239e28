// Package calendar creates and removes Google Calendar events for
// appointments. Delivery is best effort; the record store is the source of
// truth and a calendar failure never blocks a booking.
package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is the slice of an appointment the calendar needs.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// Client puts appointment events on an external calendar.
type Client interface {
	CreateEvent(ctx context.Context, ev Event) (eventID string, err error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// GoogleClient talks to the Google Calendar API using an OAuth2 token
// source. Events go on the configured calendar, "primary" by default.
type GoogleClient struct {
	calendarID string
	tokenSrc   oauth2.TokenSource
	timezone   string

	once sync.Once
	svc  *gcal.Service
	err  error
}

// NewGoogleClient builds a client from an OAuth2 config and a stored token,
// mirroring the offline-access flow used to provision the credential.
func NewGoogleClient(cfg *oauth2.Config, token *oauth2.Token, calendarID, timezone string) *GoogleClient {
	if calendarID == "" {
		calendarID = "primary"
	}
	if timezone == "" {
		timezone = "UTC"
	}
	return &GoogleClient{
		calendarID: calendarID,
		tokenSrc:   cfg.TokenSource(context.Background(), token),
		timezone:   timezone,
	}
}

func (g *GoogleClient) service(ctx context.Context) (*gcal.Service, error) {
	g.once.Do(func() {
		g.svc, g.err = gcal.NewService(ctx, option.WithTokenSource(g.tokenSrc))
	})
	return g.svc, g.err
}

func (g *GoogleClient) CreateEvent(ctx context.Context, ev Event) (string, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return "", fmt.Errorf("calendar service: %w", err)
	}

	event := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: g.timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: g.timezone,
		},
	}
	for _, a := range ev.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: a})
	}

	created, err := svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

func (g *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	svc, err := g.service(ctx)
	if err != nil {
		return fmt.Errorf("calendar service: %w", err)
	}
	if err := svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event %s: %w", eventID, err)
	}
	return nil
}

// -- Test double --

// MockClient records calendar calls for tests.
type MockClient struct {
	mu         sync.Mutex
	created    []Event
	deleted    []string
	nextID     int
	ShouldFail bool
}

func (m *MockClient) CreateEvent(_ context.Context, ev Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", fmt.Errorf("calendar unavailable")
	}
	m.created = append(m.created, ev)
	m.nextID++
	return fmt.Sprintf("evt-%d", m.nextID), nil
}

func (m *MockClient) DeleteEvent(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return fmt.Errorf("calendar unavailable")
	}
	m.deleted = append(m.deleted, eventID)
	return nil
}

// Created returns a copy of the events created so far.
func (m *MockClient) Created() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.created...)
}

// Deleted returns a copy of the event ids deleted so far.
func (m *MockClient) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
