package google

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/harrisonrobin/tasker/pkg/calendar"
	"github.com/harrisonrobin/tasker/pkg/index"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// CalendarClient pushes the calendar projection into one Google calendar.
type CalendarClient struct {
	srv        *gcal.Service
	calendarID string
	index      *index.EventIndex
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *gcal.Service, calendarID string, idx *index.EventIndex) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx}
}

// SyncResult counts what a Sync changed.
type SyncResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
}

// Sync makes the calendar mirror events: new tasks are inserted, changed ones patched and
// events of tasks that dropped out of the projection deleted.
func (c *CalendarClient) Sync(events []calendar.Event, now time.Time) (SyncResult, error) {
	var res SyncResult
	projected := make(map[int64]bool, len(events))

	for _, ev := range events {
		projected[ev.TaskID] = true
		target := calendar.ToGoogleEvent(ev, now)

		existing, err := c.find(ev.TaskID)
		if err != nil {
			return res, fmt.Errorf("error searching for event of task %d: %w", ev.TaskID, err)
		}

		if existing == nil {
			created, err := c.srv.Events.Insert(c.calendarID, target).Do()
			if err != nil {
				return res, fmt.Errorf("error creating event for task %d: %w", ev.TaskID, err)
			}
			c.remember(ev.TaskID, created.Id)
			res.Created++
			continue
		}

		patch := calendar.EventNeedsUpdate(existing, target)
		if patch == nil {
			c.remember(ev.TaskID, existing.Id)
			res.Unchanged++
			continue
		}
		updated, err := c.PatchEvent(existing.Id, patch)
		if err != nil {
			return res, fmt.Errorf("error patching event for task %d: %w", ev.TaskID, err)
		}
		c.remember(ev.TaskID, updated.Id)
		res.Updated++
	}

	if c.index != nil {
		for _, taskID := range c.index.TaskIDs() {
			if projected[taskID] {
				continue
			}
			if err := c.DeleteEvent(c.index.Get(taskID)); err != nil && !isGone(err) {
				return res, fmt.Errorf("error deleting event for task %d: %w", taskID, err)
			}
			c.index.Remove(taskID)
			res.Deleted++
		}
		if err := c.index.Save(); err != nil {
			log.Printf("Warning: failed to save event index: %v", err)
		}
	}
	return res, nil
}

func (c *CalendarClient) remember(taskID int64, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

// find looks the task's event up through the local index first, then by extended property.
func (c *CalendarClient) find(taskID int64) (*gcal.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			ev, err := c.srv.Events.Get(c.calendarID, eventID).Do()
			if err == nil && ev.Status != "cancelled" {
				return ev, nil
			}
		}
	}
	return c.GetEventByTaskID(taskID)
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(eventID string, patch *gcal.Event) (*gcal.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Do()
}

// DeleteEvent deletes an event from the calendar.
func (c *CalendarClient) DeleteEvent(eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Do()
}

// GetEventByTaskID searches for an event carrying the task id in its private extended properties.
func (c *CalendarClient) GetEventByTaskID(taskID int64) (*gcal.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%d", calendar.TaskIDProperty, taskID)).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
