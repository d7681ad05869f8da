package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/tasker/pkg/auth"
	"github.com/harrisonrobin/tasker/pkg/index"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// NewClient authenticates and returns a client bound to the calendar with the given name.
func NewClient(ctx context.Context, configDir, calendarName string, idx *index.EventIndex) (*CalendarClient, error) {
	scopes := []string{
		calendar.CalendarEventsScope,
		calendar.CalendarReadonlyScope,
	}
	client, err := auth.GetClient(ctx, configDir, scopes)
	if err != nil {
		return nil, err
	}
	return NewClientWithOptions(ctx, calendarName, idx, option.WithHTTPClient(client))
}

// NewClientWithOptions builds the service from explicit client options, such as an already
// authorised HTTP client or a different endpoint.
func NewClientWithOptions(ctx context.Context, calendarName string, idx *index.EventIndex, opts ...option.ClientOption) (*CalendarClient, error) {
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	calendarID, err := resolveCalendarID(srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx), nil
}

func resolveCalendarID(srv *calendar.Service, calendarName string) (string, error) {
	calendarList, err := srv.CalendarList.List().Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", calendarName)
}
