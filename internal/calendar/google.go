package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Spok95/expedition-bot/internal/models"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client — внешний календарь. Ошибки только логируются вызывающим.
type Client interface {
	CreateEvent(ctx context.Context, trip models.TripView, driver *models.User) (string, error)
	UpdateEvent(ctx context.Context, eventID string, trip models.TripView, driver *models.User) error
	DeleteEvent(ctx context.Context, eventID string) error
}

type GoogleClient struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	now        func() time.Time
}

var _ Client = (*GoogleClient)(nil)

func NewGoogleClient(ctx context.Context, credentialsFile, calendarID string, loc *time.Location) (*GoogleClient, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar.NewGoogleClient: %w", err)
	}
	return &GoogleClient{svc: svc, calendarID: calendarID, loc: loc, now: time.Now}, nil
}

func (c *GoogleClient) CreateEvent(ctx context.Context, trip models.TripView, driver *models.User) (string, error) {
	ev, err := c.svc.Events.Insert(c.calendarID, BuildEvent(trip, driver, c.loc, c.now())).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar.CreateEvent: %w", err)
	}
	return ev.Id, nil
}

// UpdateEvent — patch: приватные свойства события дополняются, а не заменяются.
func (c *GoogleClient) UpdateEvent(ctx context.Context, eventID string, trip models.TripView, driver *models.User) error {
	_, err := c.svc.Events.Patch(c.calendarID, eventID, BuildEvent(trip, driver, c.loc, c.now())).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("calendar.UpdateEvent: %w", err)
	}
	return nil
}

// DeleteEvent — уже удалённое событие (404/410) считается успехом.
func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("calendar.DeleteEvent: %w", err)
	}
	return nil
}

func isGone(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone
	}
	return false
}
