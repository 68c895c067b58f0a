package dav

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

// CalendarClient writes calendar objects into one named CalDAV calendar.
type CalendarClient struct {
	client       *caldav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewCalendarClient connects to endpoint and looks up the calendar called
// calendarName in the current user's calendar home.
func NewCalendarClient(ctx context.Context, logger *slog.Logger, httpClient webdav.HTTPClient, endpoint, calendarName string) (*CalendarClient, error) {
	client, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &CalendarClient{client: client, logger: logger}

	logger.Info("Finding calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found calendar", "path", calendarPath)

	return c, nil
}

// PutEvent stores cal as <uid>.ics in the calendar, replacing any object
// with the same name.
func (c *CalendarClient) PutEvent(ctx context.Context, uid string, cal *ical.Calendar) error {
	objectPath := path.Join(c.calendarPath, uid+".ics")
	c.logger.Debug("Putting calendar object", "path", objectPath)

	if _, err := c.client.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return fmt.Errorf("failed to put calendar object: %w", err)
	}
	return nil
}

// findCalendar discovers the user's calendars and returns the path of the
// one with the matching name.
func (c *CalendarClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.client.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.client.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
